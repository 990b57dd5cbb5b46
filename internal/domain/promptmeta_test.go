package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePromptMetaPlainText(t *testing.T) {
	meta, err := ParsePromptMeta(json.RawMessage(`"a cat in the rain"`))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, PromptPlainText, meta.Kind)
	assert.Equal(t, "a cat in the rain", meta.Text)
	assert.Empty(t, meta.Refs)
}

func TestParsePromptMetaNull(t *testing.T) {
	meta, err := ParsePromptMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, meta)

	meta, err = ParsePromptMeta(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestParsePromptMetaChain(t *testing.T) {
	meta, err := ParsePromptMeta(json.RawMessage(`[{"id":"a"},{"id":"b"},"combo"]`))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, PromptReferenceChain, meta.Kind)
	assert.Equal(t, []string{"a", "b"}, meta.Refs)
	assert.Equal(t, "combo", meta.Text)
}

func TestParsePromptMetaChainEmptyTrailingText(t *testing.T) {
	meta, err := ParsePromptMeta(json.RawMessage(`[{"id":"a"},""]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, meta.Refs)
	assert.Equal(t, "", meta.Text)
}

func TestParsePromptMetaRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"empty list":          `[]`,
		"non-string trailer":  `[{"id":"a"},{"id":"b"}]`,
		"null trailer":        `[{"id":"a"},null]`,
		"lone null":           `[null]`,
		"extra reference key": `[{"id":"a","note":"x"},"text"]`,
		"empty reference id":  `[{"id":""},"text"]`,
		"numeric id":          `[{"id":42},"text"]`,
		"bare number":         `42`,
		"object":              `{"id":"a"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePromptMeta(json.RawMessage(raw))
			require.Error(t, err)
			var formatErr *PromptMetaFormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestPromptMetaJSONRoundTrip(t *testing.T) {
	meta := ReferenceChain([]string{"a", "b"}, "combo")
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"},{"id":"b"},"combo"]`, string(data))

	var back PromptMeta
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *meta, back)

	plain := PlainText("just text")
	data, err = json.Marshal(plain)
	require.NoError(t, err)
	assert.Equal(t, `"just text"`, string(data))
}

func TestPromptMetaScanValue(t *testing.T) {
	meta := ReferenceChain([]string{"a"}, "t")
	value, err := meta.Value()
	require.NoError(t, err)

	var scanned PromptMeta
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, *meta, scanned)
}

func TestPromptTextExtraction(t *testing.T) {
	assert.Equal(t, "plain", PlainText("plain").PromptText())
	assert.Equal(t, "tail", ReferenceChain([]string{"a"}, "tail").PromptText())
	var nilMeta *PromptMeta
	assert.Equal(t, "", nilMeta.PromptText())
}

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsmask/internal/config"
	"newsmask/internal/logger"
	"newsmask/internal/masking"
	"newsmask/internal/models"
	"newsmask/internal/tokenizer"
	"newsmask/pkg/metadata"
)

var articles = []string{
	"今天台北股市開盤上漲，電子股領軍；分析師認為：外資持續買超！",
	"颱風逼近，氣象局發布海上警報。民眾應做好防颱準備？",
	"Stocks rallied on Monday, led by chipmakers; analysts said: buying continues!",
	"市府宣布新政策，將於下月實施。",
}

func writeSplit(t *testing.T, dir, name string, n int) string {
	t.Helper()

	var sb strings.Builder

	for i := range n {
		line, err := json.Marshal(map[string]any{
			"id":      fmt.Sprintf("%s-%d", name, i),
			"article": articles[i%len(articles)],
			"source":  "wire",
		})
		require.NoError(t, err)

		sb.Write(line)
		sb.WriteByte('\n')
	}

	path := filepath.Join(dir, name+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))

	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Masking.DocumentMaskP = 0.1
	cfg.Masking.SentenceMaskP = 0.2
	cfg.Masking.WordMaskP = 0.3
	cfg.Dataset.Splits = []config.SplitConfig{
		{Name: "train", Path: writeSplit(t, dir, "train", 40), Format: "jsonl", Enabled: true},
		{Name: "test", Path: writeSplit(t, dir, "test", 8), Format: "jsonl", Enabled: true},
		{Name: "extra", Path: writeSplit(t, dir, "extra", 2), Format: "jsonl", Enabled: false},
	}
	cfg.Output.BasePath = filepath.Join(dir, "out")
	cfg.Advanced.Workers = 4

	require.NoError(t, cfg.Validate())

	return cfg
}

func TestRunner_Run(t *testing.T) {
	cfg := testConfig(t)

	r, err := NewRunner(cfg, nil)
	require.NoError(t, err)

	reports, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2, "disabled splits are not processed")

	train := reports[0]
	assert.Equal(t, "train", train.Split)
	assert.Equal(t, 40, train.Input)
	assert.Equal(t, 40, train.Written)
	assert.Equal(t, filepath.Join(cfg.Output.BasePath, "mlm_train.json"), train.Path)
	assert.Equal(t, 40, train.Stats.Examples)

	require.NotNil(t, train.Manifest)
	assert.Equal(t, uint64(42), train.Manifest.Seed)
	assert.Equal(t, "grapheme", train.Manifest.Tokenizer)

	_, err = metadata.Verify(train.Path)
	require.NoError(t, err)

	data, err := os.ReadFile(train.Path)
	require.NoError(t, err)

	var records []models.Record
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 40)

	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("train-%d", i), rec.ID, "input order is preserved")
		assert.Equal(t, "wire", rec.Fields["source"])
		assert.True(t, strings.HasSuffix(rec.Answer, "[MASK]") || rec.Answer == "", rec.Answer)
		assert.NotEmpty(t, rec.MaskedArticle)
	}
}

func TestRunner_DeterministicAcrossWorkers(t *testing.T) {
	cfg := testConfig(t)

	var outputs [][]models.Record

	for _, workers := range []int{1, 3, 16} {
		cfg.Advanced.Workers = workers

		r, err := NewRunner(cfg, nil)
		require.NoError(t, err)

		records, err := r.Preview(context.Background(), "train", 0)
		require.NoError(t, err)

		outputs = append(outputs, records)
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestRunner_SeedChangesOutput(t *testing.T) {
	cfg := testConfig(t)

	r, err := NewRunner(cfg, nil)
	require.NoError(t, err)

	first, err := r.Preview(context.Background(), "train", 0)
	require.NoError(t, err)

	cfg.Advanced.Seed = 7

	r, err = NewRunner(cfg, nil)
	require.NoError(t, err)

	second, err := r.Preview(context.Background(), "train", 0)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRunner_PreviewMatchesRun(t *testing.T) {
	cfg := testConfig(t)

	r, err := NewRunner(cfg, nil)
	require.NoError(t, err)

	preview, err := r.Preview(context.Background(), "test", 3)
	require.NoError(t, err)
	require.Len(t, preview, 3)

	report, err := r.RunNamed(context.Background(), "test")
	require.NoError(t, err)

	data, err := os.ReadFile(report.Path)
	require.NoError(t, err)

	var written []models.Record
	require.NoError(t, json.Unmarshal(data, &written))

	assert.Equal(t, preview, written[:3])
}

func TestRunner_LogsFailedSplit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Splits[0].Path = filepath.Join(t.TempDir(), "missing.jsonl")

	var buf bytes.Buffer

	r, err := NewRunner(cfg, logger.New(&buf, "info", "text"))
	require.NoError(t, err)

	reports, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, reports)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "split=train")
}

func TestRunner_UnknownSplit(t *testing.T) {
	r, err := NewRunner(testConfig(t), nil)
	require.NoError(t, err)

	_, err = r.RunNamed(context.Background(), "validation")
	require.ErrorIs(t, err, ErrUnknownSplit)

	_, err = r.Preview(context.Background(), "validation", 1)
	require.ErrorIs(t, err, ErrUnknownSplit)
}

func TestMaskSplit_InvalidRecords(t *testing.T) {
	split := models.Split{
		Name: "train",
		Records: []models.Record{
			{ID: "a", Article: "第一篇報導。"},
			{ID: "b", Fields: map[string]any{"title": "no body"}},
			{ID: "c", Article: "第三篇報導！"},
		},
	}

	t.Run("Abort by default", func(t *testing.T) {
		r, err := NewRunner(testConfig(t), nil)
		require.NoError(t, err)

		_, _, _, err = r.MaskSplit(context.Background(), split)
		require.ErrorIs(t, err, ErrNoArticle)
		require.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("Skip when allowed", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Advanced.ContinueOnValidationErrors = true

		r, err := NewRunner(cfg, nil)
		require.NoError(t, err)

		records, examples, skipped, err := r.MaskSplit(context.Background(), split)
		require.NoError(t, err)

		assert.Equal(t, 1, skipped)
		require.Len(t, records, 2)
		assert.Len(t, examples, 2)
		assert.Equal(t, "a", records[0].ID)
		assert.Equal(t, "c", records[1].ID)
	})
}

func TestRunner_EmptyArticles(t *testing.T) {
	dir := t.TempDir()
	data := "{\"id\": \"1\", \"article\": \"\"}\n" +
		"{\"id\": \"2\", \"article\": \"  \"}\n" +
		"{\"id\": \"3\", \"article\": \"新聞。\"}\n"
	path := filepath.Join(dir, "train.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg := config.DefaultConfig()
	cfg.Masking.DocumentMaskP = 0
	cfg.Masking.SentenceMaskP = 0
	cfg.Masking.WordMaskP = 0
	cfg.Dataset.Splits = []config.SplitConfig{{Name: "train", Path: path, Format: "jsonl", Enabled: true}}
	cfg.Output.BasePath = filepath.Join(dir, "out")
	cfg.Output.Format = "jsonl"
	require.NoError(t, cfg.Validate())

	r, err := NewRunner(cfg, nil)
	require.NoError(t, err)

	reports, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].Written)
	assert.Zero(t, reports[0].Skipped)

	out, err := os.ReadFile(reports[0].Path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)

	var empty, blank models.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &empty))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &blank))

	assert.Equal(t, "", empty.MaskedArticle)
	assert.Equal(t, "[MASK]", empty.Answer)
	assert.Equal(t, "  ", blank.MaskedArticle)
	assert.Equal(t, "[MASK]", blank.Answer)
}

func TestMaskSplit_CanceledContext(t *testing.T) {
	r, err := NewRunner(testConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err = r.MaskSplit(ctx, models.Split{Name: "x", Records: []models.Record{{ID: "1", Article: "新聞。"}}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_Process(t *testing.T) {
	tok, err := tokenizer.NewGrapheme("[MASK]", 0)
	require.NoError(t, err)

	policy := masking.Policy{DocumentMaskP: 1}
	p := NewProcessor(masking.NewEngine(tok, policy))

	rec := models.Record{ID: "1", Article: "全文遮蔽。", Fields: map[string]any{"k": "v"}}

	out, ex, err := p.Process(RecordRand(1, "train", 0), rec)
	require.NoError(t, err)

	assert.Equal(t, "[MASK]", out.MaskedArticle)
	assert.Equal(t, "全文遮蔽。[MASK]", out.Answer)
	assert.Equal(t, models.TierDocument, ex.Trace.Tier)
	assert.Equal(t, "v", out.Fields["k"])
	assert.Empty(t, rec.MaskedArticle, "input record is not modified")
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		rec     models.Record
		wantErr error
	}{
		{"Valid", models.Record{ID: "1", Article: "新聞"}, nil},
		{"Missing id", models.Record{Article: "新聞"}, ErrMissingID},
		{"No article", models.Record{ID: "1"}, ErrNoArticle},
		{"Empty article", models.Record{ID: "1", HasArticle: true}, nil},
		{"Whitespace article", models.Record{ID: "1", Article: " \n\t"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.rec)
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, masking.DefaultPolicy(), PolicyFromConfig(cfg.Masking))
	assert.Equal(t, masking.DefaultDelimiters.String(), DelimitersFromConfig(cfg.Masking).String())

	cfg.Masking.Delimiters = "。"
	d := DelimitersFromConfig(cfg.Masking)
	assert.True(t, d.Contains('。'))
	assert.False(t, d.Contains('，'))

	cfg.Masking.Delimiters = ""
	assert.Equal(t, masking.DefaultDelimiters.Len(), DelimitersFromConfig(cfg.Masking).Len())
}

func TestDefaultDelimitersMatch(t *testing.T) {
	assert.Equal(t, masking.DefaultDelimiterChars, config.DefaultDelimiters)
}

func TestRecordRand(t *testing.T) {
	a := RecordRand(42, "train", 3)
	b := RecordRand(42, "train", 3)

	for range 10 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}

	assert.NotEqual(t, RecordRand(42, "train", 3).Uint64(), RecordRand(42, "train", 4).Uint64())
	assert.NotEqual(t, RecordRand(42, "train", 3).Uint64(), RecordRand(42, "test", 3).Uint64())
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/embed"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/vector"
)

type fakeSource struct {
	orgs   []organization.Organization
	report corpus.LoadReport
}

func (f *fakeSource) LoadAll(context.Context) ([]organization.Organization, corpus.LoadReport) {
	return f.orgs, f.report
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	tasks   []embed.TaskType
	err     error
	short   bool
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string, task embed.TaskType) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, texts)
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, float32(len(f.batches)), float32(i + 1)}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func corpusOrgs(n int) []organization.Organization {
	orgs := make([]organization.Organization, n)
	for i := range orgs {
		orgs[i] = organization.Organization{
			ID:                                 uuid.NewString(),
			Navn:                               fmt.Sprintf("Lag %d", i),
			Aktivitet:                          "Idrett",
			ForretningsadresseKommune:          "BERGEN",
			RegistrertIFrivillighetsregisteret: true,
		}
	}
	return orgs
}

func TestDocumentText(t *testing.T) {
	tests := []struct {
		name string
		org  organization.Organization
		want string
	}{
		{
			"all parts",
			organization.Organization{
				Navn:                     "Bergen Kor",
				Aktivitet:                "Korsang",
				VedtektsfestetFormaal:    "Fremme song",
				Naeringskode1Beskrivelse: "Kunstnarisk verksemd",
				Naeringskode3Beskrivelse: "Foreiningar",
			},
			"Organisasjon: Bergen Kor. Hovedaktivitet: Korsang. Formål: Fremme song. Kategori: Kunstnarisk verksemd, Foreiningar",
		},
		{
			"empty parts omitted",
			organization.Organization{Navn: "Turlaget", VedtektsfestetFormaal: "  "},
			"Organisasjon: Turlaget",
		},
		{"nothing", organization.Organization{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentText(&tt.org))
		})
	}
}

func TestPipeline_WritesAllDocumentsInBatches(t *testing.T) {
	// Given: 25 records, one unregistered and one without a uuid
	orgs := corpusOrgs(25)
	orgs[3].RegistrertIFrivillighetsregisteret = false
	orgs[7].ID = "42"
	emb := &fakeEmbedder{}
	sink := vector.NewLocalIndex(3, nil, discardLogger())

	var mu sync.Mutex
	var progress []int
	p := NewPipeline(&fakeSource{orgs: orgs}, emb, sink,
		WithBatchSize(10),
		WithConcurrency(2),
		WithLogger(discardLogger()),
		WithProgress(func(written, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 23, total)
			progress = append(progress, written)
		}))

	// When: running
	report, err := p.Run(context.Background())

	// Then: 23 documents are written in three batches as retrieval documents
	require.NoError(t, err)
	assert.Equal(t, 25, report.Loaded)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 23, report.Written)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 23, sink.Count())
	assert.Len(t, emb.batches, 3)
	for _, task := range emb.tasks {
		assert.Equal(t, embed.RetrievalDocument, task)
	}
	assert.Len(t, progress, 3)
	assert.Contains(t, progress, 23)
}

func TestPipeline_RerunReplacesPoints(t *testing.T) {
	orgs := corpusOrgs(4)
	sink := vector.NewLocalIndex(3, nil, discardLogger())
	p := NewPipeline(&fakeSource{orgs: orgs}, &fakeEmbedder{}, sink, WithLogger(discardLogger()))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, sink.Count())
}

func TestPipeline_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty corpus", func(t *testing.T) {
		p := NewPipeline(&fakeSource{report: corpus.LoadReport{ShardsFailed: 9}}, &fakeEmbedder{},
			vector.NewLocalIndex(3, nil, discardLogger()), WithLogger(discardLogger()))
		report, err := p.Run(ctx)
		assert.Equal(t, ferrors.ErrCodeIngestFailed, ferrors.GetCode(err))
		assert.Equal(t, 9, report.ShardsFailed)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		emb := &fakeEmbedder{}
		p := NewPipeline(&fakeSource{orgs: corpusOrgs(2)}, emb,
			vector.NewLocalIndex(768, nil, discardLogger()), WithLogger(discardLogger()))
		_, err := p.Run(ctx)
		assert.Equal(t, ferrors.ErrCodeDimensionMismatch, ferrors.GetCode(err))
		assert.Empty(t, emb.batches, "nothing is embedded before the collection is checked")
	})

	t.Run("embedder failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		p := NewPipeline(&fakeSource{orgs: corpusOrgs(5)}, &fakeEmbedder{err: boom},
			vector.NewLocalIndex(3, nil, discardLogger()), WithLogger(discardLogger()))
		report, err := p.Run(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, ferrors.ErrCodeIngestFailed, ferrors.GetCode(err))
		assert.Zero(t, report.Written)
	})

	t.Run("short embedding answer", func(t *testing.T) {
		p := NewPipeline(&fakeSource{orgs: corpusOrgs(5)}, &fakeEmbedder{short: true},
			vector.NewLocalIndex(3, nil, discardLogger()), WithLogger(discardLogger()))
		_, err := p.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ingest batch")
	})
}

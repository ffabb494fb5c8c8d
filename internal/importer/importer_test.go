package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/leitbox/internal/assets"
	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/lifecycle"
	"github.com/conorfennell/leitbox/internal/storage"
)

type fixture struct {
	repo   *storage.JSONRepository
	images *assets.Store
	im     *Importer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	images, err := assets.NewStore(filepath.Join(root, "images"))
	require.NoError(t, err)
	repo := storage.NewJSONRepository(filepath.Join(root, "cards.json"))
	cards := lifecycle.NewManager(domain.DefaultMaxBox, images)
	cards.Now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local) }
	return &fixture{
		repo:   repo,
		images: images,
		im:     New(repo, cards, images, filepath.Join(root, "repos")),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestImportDirMarkdown(t *testing.T) {
	f := newFixture(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "deck.md"), "# Capitals\n\nQ: France?\nA: Paris\nC: Since 508\n---\nQ: ![flag](img/flag.png)\nA: Italy\n")
	writeFile(t, filepath.Join(src, "img", "flag.png"), "png")

	report, err := f.im.ImportDir(src, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	assert.Empty(t, report.Errors)

	cards, err := f.repo.ListAll()
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, domain.Text("France?"), cards[0].Recto)
	assert.Equal(t, domain.Text("Paris\n\nSince 508"), cards[0].Verso)
	assert.Equal(t, 2, cards[0].Box)
	assert.Equal(t, "2024-03-12", cards[0].NextReviewDate.String())

	stored := filepath.Join(f.images.Dir, "flag.png")
	assert.Equal(t, domain.Image(stored), cards[1].Recto)
	assert.FileExists(t, stored)
}

func TestImportDirPairsImages(t *testing.T) {
	f := newFixture(t)
	src := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "d.jpg", "c.jpg", "e.gif", "notes.txt"} {
		writeFile(t, filepath.Join(src, name), name)
	}

	report, err := f.im.ImportDir(src, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)

	cards, err := f.repo.ListAll()
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, domain.Image(filepath.Join(f.images.Dir, "a.png")), cards[0].Recto)
	assert.Equal(t, domain.Image(filepath.Join(f.images.Dir, "b.png")), cards[0].Verso)
	assert.Equal(t, domain.Image(filepath.Join(f.images.Dir, "c.jpg")), cards[1].Recto)
	assert.Equal(t, domain.Image(filepath.Join(f.images.Dir, "d.jpg")), cards[1].Verso)
	assert.NoFileExists(t, filepath.Join(f.images.Dir, "e.gif"))
}

func TestImportDirKeepsSameNamedImagesApart(t *testing.T) {
	f := newFixture(t)
	src := t.TempDir()
	for _, lang := range []string{"french", "german"} {
		writeFile(t, filepath.Join(src, lang, "1.png"), lang+"-recto")
		writeFile(t, filepath.Join(src, lang, "2.png"), lang+"-verso")
	}

	report, err := f.im.ImportDir(src, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Skipped)

	cards, err := f.repo.ListAll()
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.NotEqual(t, cards[0].Recto, cards[1].Recto)
	for i, lang := range []string{"french", "german"} {
		b, err := os.ReadFile(cards[i].Recto.Value)
		require.NoError(t, err)
		assert.Equal(t, lang+"-recto", string(b))
		b, err = os.ReadFile(cards[i].Verso.Value)
		require.NoError(t, err)
		assert.Equal(t, lang+"-verso", string(b))
	}

	report, err = f.im.ImportDir(src, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 2, report.Skipped)
}

func TestImportDirSkipsDuplicates(t *testing.T) {
	f := newFixture(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "deck.md"), "Q: one\nA: 1\n---\nQ: two\nA: 2\n---\nQ:  one \nA: 1\n")

	report, err := f.im.ImportDir(src, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 1, report.Skipped)

	report, err = f.im.ImportDir(src, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 3, report.Skipped)

	cards, err := f.repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestImportDirReportsInvalidNotes(t *testing.T) {
	f := newFixture(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "deck.md"), "Q: no answer\n---\nQ: ok\nA: yes\n")

	report, err := f.im.ImportDir(src, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0], domain.ErrValidation)
}

func TestImportRejectsBadBox(t *testing.T) {
	f := newFixture(t)

	_, err := f.im.ImportDir(t.TempDir(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.im.ImportDir(t.TempDir(), domain.DefaultMaxBox+1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestImportUnknownSource(t *testing.T) {
	f := newFixture(t)

	_, err := f.im.Import(filepath.Join(t.TempDir(), "missing"), 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWorkbookRoundTrip(t *testing.T) {
	f := newFixture(t)
	cards := []domain.Card{
		{ID: "1", Box: 3, Recto: domain.Text("hund"), Verso: domain.Text("dog"), Marked: true},
		{ID: "2", Box: 1, Recto: domain.Image("https://example.com/cat.png"), Verso: domain.Text("cat")},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportWorkbook(cards, &buf))
	path := filepath.Join(t.TempDir(), "deck.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	report, err := f.im.Import(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	assert.Empty(t, report.Errors)

	got, err := f.repo.ListAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Text("hund"), got[0].Recto)
	assert.Equal(t, 3, got[0].Box)
	assert.Equal(t, domain.Image("https://example.com/cat.png"), got[1].Recto)
	assert.Equal(t, 1, got[1].Box)
}

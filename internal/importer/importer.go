// Package importer bulk-loads cards from markdown decks, folders of paired
// images, git repositories and spreadsheets. Each import is one
// load-all/save-all cycle; cards whose faces already exist are skipped.
package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conorfennell/leitbox/internal/assets"
	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/gitsource"
	"github.com/conorfennell/leitbox/internal/knol"
	"github.com/conorfennell/leitbox/internal/lifecycle"
	"github.com/conorfennell/leitbox/internal/parser"
	"github.com/conorfennell/leitbox/internal/storage"
)

// Report summarizes one import.
type Report struct {
	Added   int
	Skipped int
	Errors  []error
}

// Importer adds cards to the collection.
type Importer struct {
	repo     storage.Repository
	cards    *lifecycle.Manager
	images   *assets.Store
	reposDir string
}

func New(repo storage.Repository, cards *lifecycle.Manager, images *assets.Store, reposDir string) *Importer {
	return &Importer{repo: repo, cards: cards, images: images, reposDir: reposDir}
}

// Import picks the importer for source: a .xlsx file, a git URL or a local
// directory.
func (im *Importer) Import(source string, initialBox int) (Report, error) {
	switch {
	case strings.EqualFold(filepath.Ext(source), ".xlsx"):
		return im.ImportWorkbook(source, initialBox)
	case isDir(source):
		return im.ImportDir(source, initialBox)
	case gitsource.IsGitURL(source):
		return im.ImportGit(source, initialBox)
	default:
		return Report{}, fmt.Errorf("%w: %s is neither a directory, a git URL nor an .xlsx file", domain.ErrValidation, source)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ImportGit clones or pulls the repository, then imports its checkout.
func (im *Importer) ImportGit(repoURL string, initialBox int) (Report, error) {
	localPath, err := gitsource.LocalPath(im.reposDir, repoURL)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return Report{}, fmt.Errorf("failed to create repos directory: %w", err)
	}
	if err := gitsource.Sync(repoURL, localPath, nil); err != nil {
		return Report{}, err
	}
	return im.ImportDir(localPath, initialBox)
}

// candidate is a card about to be created. Local image faces point at their
// source file until the candidate is known not to be a duplicate; they are
// then copied into the store and repointed.
type candidate struct {
	recto, verso       domain.FaceContent
	rectoSrc, versoSrc string
	origin             string
	box                int // 0 means the import's initial box
}

// ImportDir walks dir. Every markdown file contributes its Q/A notes; the
// images of each directory, sorted by name, are paired into recto/verso
// cards. An odd last image is ignored.
func (im *Importer) ImportDir(dir string, initialBox int) (Report, error) {
	if err := domain.ValidateBox(initialBox, im.cards.MaxBox); err != nil {
		return Report{}, err
	}

	var report Report
	var found []candidate
	imagesByDir := map[string][]string{}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case strings.HasSuffix(strings.ToLower(d.Name()), ".md"):
			notes, parseErr := parser.ParseFile(path)
			if parseErr != nil {
				report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			}
			for _, n := range notes {
				found = append(found, im.fromNote(path, n))
			}
		case assets.IsImageFile(d.Name()):
			imagesByDir[filepath.Dir(path)] = append(imagesByDir[filepath.Dir(path)], path)
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	dirs := make([]string, 0, len(imagesByDir))
	for d := range imagesByDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		files := imagesByDir[d]
		sort.Strings(files)
		if len(files)%2 != 0 {
			slog.Warn("Odd number of images, ignoring the last one", "dir", d, "ignored", filepath.Base(files[len(files)-1]))
			files = files[:len(files)-1]
		}
		for i := 0; i+1 < len(files); i += 2 {
			found = append(found, im.fromImagePair(files[i], files[i+1]))
		}
	}

	err := im.commit(found, initialBox, &report)
	slog.Info("Import complete",
		"path", dir,
		"added", report.Added,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	return report, err
}

func (im *Importer) fromNote(path string, n parser.Note) candidate {
	c := candidate{recto: n.Recto, verso: n.Verso, origin: fmt.Sprintf("%s:%d", path, n.Line)}
	if n.Context != "" && n.Verso.IsText() {
		c.verso = domain.Text(n.Verso.Value + "\n\n" + n.Context)
	}
	c.recto, c.rectoSrc = im.localImage(path, c.recto)
	c.verso, c.versoSrc = im.localImage(path, c.verso)
	return c
}

// localImage resolves a local image reference relative to the markdown file
// and returns it with the file to copy.
func (im *Importer) localImage(mdPath string, face domain.FaceContent) (domain.FaceContent, string) {
	ref := face.LocalPath()
	if ref == "" {
		return face, ""
	}
	src := ref
	if !filepath.IsAbs(src) {
		src = filepath.Join(filepath.Dir(mdPath), ref)
	}
	return domain.Image(src), src
}

func (im *Importer) fromImagePair(recto, verso string) candidate {
	return candidate{
		recto:    domain.Image(recto),
		verso:    domain.Image(verso),
		rectoSrc: recto,
		versoSrc: verso,
		origin:   recto,
	}
}

// fingerprint hashes two faces with every readable local image replaced by
// the digest of its bytes, so the same picture matches under any file name
// and different pictures never match on a shared name.
func fingerprint(recto, verso domain.FaceContent) (string, error) {
	r, err := imageDigest(recto)
	if err != nil {
		return "", err
	}
	v, err := imageDigest(verso)
	if err != nil {
		return "", err
	}
	return knol.Hash(r, v), nil
}

func imageDigest(face domain.FaceContent) (domain.FaceContent, error) {
	path := face.LocalPath()
	if path == "" {
		return face, nil
	}
	sum, err := knol.FileHash(path)
	if errors.Is(err, fs.ErrNotExist) {
		return face, nil
	}
	if err != nil {
		return face, fmt.Errorf("failed to hash image %s: %w", path, err)
	}
	return domain.Image("sha256:" + sum), nil
}

// commit creates the non-duplicate candidates and saves the collection once.
func (im *Importer) commit(found []candidate, initialBox int, report *Report) error {
	all, err := im.repo.ListAll()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(all))
	for _, c := range all {
		hash, err := fingerprint(c.Recto, c.Verso)
		if err != nil {
			slog.Warn("Falling back to image paths for duplicate check", "card_id", c.ID, "error", err)
			hash = knol.CardHash(c)
		}
		seen[hash] = true
	}

	added := 0
	for i := range found {
		cand := &found[i]
		hash, err := fingerprint(cand.recto, cand.verso)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", cand.origin, err))
			continue
		}
		if seen[hash] {
			report.Skipped++
			continue
		}
		box := initialBox
		if cand.box != 0 {
			box = cand.box
		}
		card, err := im.cards.CreateCard(cand.recto, cand.verso, box)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", cand.origin, err))
			continue
		}
		if err := im.copyImages(&card, cand); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", cand.origin, err))
			continue
		}
		seen[hash] = true
		all = append(all, card)
		added++
		slog.Debug("Card imported", "card_id", card.ID, "origin", cand.origin)
	}

	if added == 0 {
		return nil
	}
	if err := im.repo.SaveAll(all); err != nil {
		return err
	}
	report.Added = added
	return nil
}

// copyImages stores the candidate's local images and points the card at the
// stored copies.
func (im *Importer) copyImages(card *domain.Card, c *candidate) error {
	for _, f := range []struct {
		src  string
		face *domain.FaceContent
	}{{c.rectoSrc, &card.Recto}, {c.versoSrc, &card.Verso}} {
		if f.src == "" {
			continue
		}
		stored, err := im.images.Import(f.src)
		if err != nil {
			return err
		}
		*f.face = domain.Image(stored)
	}
	return nil
}

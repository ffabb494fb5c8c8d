package knol

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/leitbox/internal/domain"
)

// Normalize renders both faces of a card as one comparable string. Text is
// trimmed, lowercased and gets unix line endings; image refs are kept as
// written apart from surrounding space. Each face is tagged with its kind so
// a text "a.png" never collides with an image "a.png".
func Normalize(recto, verso domain.FaceContent) string {
	normalizeFace := func(f domain.FaceContent) string {
		v := strings.TrimSpace(f.Value)
		if f.Kind == domain.TextContent {
			v = strings.ToLower(v)
			v = strings.ReplaceAll(v, "\r\n", "\n")
		}
		return f.Kind.String() + ":" + v
	}

	// Faces are joined with a newline so "ab"+"c" differs from "a"+"bc".
	return strings.Join([]string{normalizeFace(recto), normalizeFace(verso)}, "\n")
}

// Hash returns the SHA-256 of the normalized faces as a hex string.
func Hash(recto, verso domain.FaceContent) string {
	hashBytes := sha256.Sum256([]byte(Normalize(recto, verso)))
	return fmt.Sprintf("%x", hashBytes)
}

// CardHash is Hash over a card's faces.
func CardHash(card domain.Card) string {
	return Hash(card.Recto, card.Verso)
}

// FileHash returns the SHA-256 of a file's bytes as a hex string.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

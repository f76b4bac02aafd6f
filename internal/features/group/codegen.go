package group

import (
	"context"
	"crypto/rand"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"
)

// codeAlphabet omits glyphs that read ambiguously when students share codes
// verbally or on paper (O/0, I/1, S/5).
const codeAlphabet = "ABCDEFGHJKLMNPQRTUVWXYZ2346789"

const (
	// CodeLength is the length of a group invitation code.
	CodeLength = 6

	maxCodeAttempts = 10
)

// codeIndex is the read-only existence check GenerateUnique runs against
// persisted groups.
type codeIndex interface {
	CodeExists(ctx context.Context, code string, year int, projectType models.ProjectType) (bool, error)
}

type CodeGenerator struct {
	groups codeIndex
}

func NewCodeGenerator(repo GroupRepository) *CodeGenerator {
	return &CodeGenerator{groups: repo}
}

// Generate draws a code uniformly from the unambiguous alphabet. Bytes
// outside the largest multiple of the alphabet size are rejected so no
// character is favored.
func (g *CodeGenerator) Generate() (string, error) {
	limit := byte(len(codeAlphabet) * (256 / len(codeAlphabet)))

	code := make([]byte, 0, CodeLength)
	buf := make([]byte, 1)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue
		}
		code = append(code, codeAlphabet[int(buf[0])%len(codeAlphabet)])
	}
	return string(code), nil
}

// GenerateUnique returns a code no existing group of the same (year, type)
// uses. The pre-check is advisory; the unique index on groups is what makes
// the code race-safe, and callers retry the insert on a duplicate key error.
// Exhausting the retry bound indicates an operational problem, not user error.
func (g *CodeGenerator) GenerateUnique(ctx context.Context, year int, projectType models.ProjectType) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := g.Generate()
		if err != nil {
			return "", err
		}

		exists, err := g.groups.CodeExists(ctx, code, year, projectType)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperr.Exhausted("could not generate a unique group code after %d attempts", maxCodeAttempts)
}

package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars     = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// similarChars are visually confusable and excluded when the policy
	// asks for it.
	similarChars = "il1Lo0O"

	MinLength = 8
	MaxLength = 64
)

// ErrEmptyCharset is returned when the policy excludes every character
// class.
var ErrEmptyCharset = errors.New("no character classes enabled")

// Policy selects which character classes a generated password draws from.
type Policy struct {
	Length         int
	Uppercase      bool
	Lowercase      bool
	Digits         bool
	Symbols        bool
	ExcludeSimilar bool

	// HighEntropy XORs three independent CSPRNG streams when drawing
	// random bytes.
	HighEntropy bool
}

// DefaultPolicy is a 16-character password over all classes with
// confusables removed.
func DefaultPolicy() Policy {
	return Policy{
		Length:         16,
		Uppercase:      true,
		Lowercase:      true,
		Digits:         true,
		Symbols:        true,
		ExcludeSimilar: true,
	}
}

// Result is a generated password with its strength assessment.
type Result struct {
	Password    string
	EntropyBits float64
	Strength    string
}

// Generator produces passwords from crypto-quality randomness. The rand
// source is injectable for tests; nil means crypto/rand.
type Generator struct {
	rand io.Reader
}

func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

func NewGeneratorWithRand(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate produces a password satisfying the policy: drawn from the
// class union, with at least one character from every enabled class, in
// an order that does not leak which positions were forced.
func (g *Generator) Generate(policy Policy) (Result, error) {
	if policy.Length < MinLength || policy.Length > MaxLength {
		return Result{}, fmt.Errorf("password length must be between %d and %d, got %d", MinLength, MaxLength, policy.Length)
	}

	classes := enabledClasses(policy)
	if len(classes) == 0 {
		return Result{}, ErrEmptyCharset
	}

	charset := strings.Join(classes, "")

	// Draw twice as many bytes as needed and map them onto the charset.
	raw, err := g.randomBytes(policy.Length*2, policy.HighEntropy)
	if err != nil {
		return Result{}, fmt.Errorf("drawing random bytes: %w", err)
	}

	chars := make([]byte, policy.Length)
	for i := range chars {
		chars[i] = charset[int(raw[i])%len(charset)]
	}

	// Force coverage: overwrite the first len(classes) positions with one
	// character from each class, then shuffle so the forced positions are
	// indistinguishable.
	for i, class := range classes {
		n, err := g.randomInt(len(class))
		if err != nil {
			return Result{}, fmt.Errorf("drawing class character: %w", err)
		}
		chars[i] = class[n]
	}

	for i := len(chars) - 1; i > 0; i-- {
		j, err := g.randomInt(i + 1)
		if err != nil {
			return Result{}, fmt.Errorf("shuffling: %w", err)
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	bits := float64(policy.Length) * math.Log2(float64(len(charset)))

	return Result{
		Password:    string(chars),
		EntropyBits: bits,
		Strength:    StrengthLabel(bits, policy.HighEntropy),
	}, nil
}

// StrengthLabel buckets an entropy estimate into a human label.
func StrengthLabel(bits float64, highEntropy bool) string {
	switch {
	case bits < 40:
		return "Weak"
	case bits < 60:
		return "Moderate"
	case bits < 80:
		return "Strong"
	case bits < 128:
		return "Very Strong"
	default:
		if highEntropy {
			return "Maximum (Quantum-Resistant)"
		}
		return "Maximum"
	}
}

func enabledClasses(policy Policy) []string {
	var classes []string
	add := func(class string) {
		if policy.ExcludeSimilar {
			class = stripSimilar(class)
		}
		if class != "" {
			classes = append(classes, class)
		}
	}
	if policy.Uppercase {
		add(uppercaseChars)
	}
	if policy.Lowercase {
		add(lowercaseChars)
	}
	if policy.Digits {
		add(digitChars)
	}
	if policy.Symbols {
		add(symbolChars)
	}
	return classes
}

func stripSimilar(class string) string {
	var b strings.Builder
	for i := 0; i < len(class); i++ {
		if strings.IndexByte(similarChars, class[i]) < 0 {
			b.WriteByte(class[i])
		}
	}
	return b.String()
}

// randomBytes draws n bytes. In high-entropy mode three independent draws
// are XORed together; the result is no weaker than the strongest stream.
func (g *Generator) randomBytes(n int, highEntropy bool) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return nil, err
	}
	if !highEntropy {
		return buf, nil
	}

	for round := 0; round < 2; round++ {
		extra := make([]byte, n)
		if _, err := io.ReadFull(g.rand, extra); err != nil {
			return nil, err
		}
		for i := range buf {
			buf[i] ^= extra[i]
		}
	}
	return buf, nil
}

// randomInt draws a uniform int in [0, n) without modulo bias.
func (g *Generator) randomInt(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

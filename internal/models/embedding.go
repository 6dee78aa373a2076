package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Embedding is a dense vector stored in a pgvector column. It is written and
// read in pgvector's text form, e.g. "[0.1,0.2,0.3]".
type Embedding []float32

// Value implements driver.Valuer
func (e Embedding) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return e.String(), nil
}

// String renders the vector in pgvector text form.
func (e Embedding) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Scan implements sql.Scanner
func (e *Embedding) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return fmt.Errorf("cannot scan %T into Embedding", src)
	}

	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return errors.New("embedding must be enclosed in brackets")
	}
	body := strings.TrimSpace(text[1 : len(text)-1])
	if body == "" {
		*e = Embedding{}
		return nil
	}

	parts := strings.Split(body, ",")
	out := make(Embedding, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("embedding component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	*e = out
	return nil
}

// CosineSimilarity returns the cosine similarity of two vectors, or 0 when
// their dimensions differ or either is a zero vector.
func (e Embedding) CosineSimilarity(other Embedding) float64 {
	if len(e) == 0 || len(e) != len(other) {
		return 0
	}
	var dot, na, nb float64
	for i := range e {
		a, b := float64(e[i]), float64(other[i])
		dot += a * b
		na += a * a
		nb += b * b
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

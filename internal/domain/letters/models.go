package letters

import (
	"time"

	"peopleops/internal/domain/payroll"
)

const (
	KindJoining = "joining"
	KindSalary  = "salary"
)

// Target is the person a letter is generated for. Embedded carries the
// denormalized salary copy stored on an applicant; it is consulted only
// when no authoritative snapshot exists.
type Target struct {
	Type     string
	ID       string
	Name     string
	Email    string
	Embedded *payroll.Breakdown
}

// GeneratedLetter is the persisted record of one successful render.
type GeneratedLetter struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	SHA256     string    `json:"sha256"`
	FilePath   string    `json:"filePath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Options controls the PDF renderer.
type Options struct {
	Format          string `json:"format"`
	Margin          string `json:"margin"`
	PrintBackground bool   `json:"printBackground"`
}

// DefaultOptions matches the layout the HTML templates are designed for.
func DefaultOptions() Options {
	return Options{Format: "A4", Margin: "15mm", PrintBackground: true}
}

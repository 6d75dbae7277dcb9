package booking

import (
	"context"
	"strings"

	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

type knowledgeRepository interface {
	Cities(ctx context.Context) ([]string, error)
	ClinicNames(ctx context.Context) ([]string, error)
	Specializations(ctx context.Context) ([]string, error)
}

// Knowledge builds the live facts block appended to the system prompt.
type Knowledge struct {
	repo   knowledgeRepository
	logger *logging.Logger
}

func NewKnowledge(repo knowledgeRepository, logger *logging.Logger) *Knowledge {
	if repo == nil {
		panic("booking: knowledge repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Knowledge{repo: repo, logger: logger}
}

// Knowledge queries the booking tables on every call. Any failure yields "".
func (k *Knowledge) Knowledge(ctx context.Context) string {
	cities, err := k.repo.Cities(ctx)
	if err != nil {
		k.logger.Warn("knowledge block unavailable", "error", err)
		return ""
	}
	clinics, err := k.repo.ClinicNames(ctx)
	if err != nil {
		k.logger.Warn("knowledge block unavailable", "error", err)
		return ""
	}
	specs, err := k.repo.Specializations(ctx)
	if err != nil {
		k.logger.Warn("knowledge block unavailable", "error", err)
		return ""
	}

	var b strings.Builder
	b.WriteString("[REAL-TIME KNOWLEDGE]\n")
	b.WriteString("- Available Cities: " + joinOr(cities, "None") + "\n")
	b.WriteString("- Key Clinics: " + joinOr(clinics, "None") + "\n")
	b.WriteString("- Specializations: " + joinOr(specs, "General"))
	return b.String()
}

func joinOr(values []string, empty string) string {
	if len(values) == 0 {
		return empty
	}
	return strings.Join(values, ", ")
}

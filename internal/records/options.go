package records

import (
	"context"
	"log/slog"

	"github.com/mailtable/mailtable/internal/refs"
)

// OptionTable describes where reference options for one entity kind
// live: the table and the fields holding display name and email.
type OptionTable struct {
	Table      string
	NameField  string
	EmailField string
}

// LoadOptions fetches the reference options for one entity kind.
// Options are meant to be loaded once per session and treated as
// read-only afterwards. A nil client or missing configuration yields an
// empty set, never an error: reference resolution simply matches
// nothing, which downstream code already tolerates.
func LoadOptions(ctx context.Context, c *Client, spec OptionTable, logger *slog.Logger) []refs.Option {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil || spec.Table == "" {
		logger.Debug("reference options unavailable, backend not configured",
			"table", spec.Table,
		)
		return nil
	}

	fields := []string{spec.NameField}
	if spec.EmailField != "" {
		fields = append(fields, spec.EmailField)
	}

	rows, err := c.ListAllRecords(ctx, spec.Table, ListOptions{Fields: fields})
	if err != nil {
		logger.Warn("failed to load reference options",
			"table", spec.Table,
			"error", err.Error(),
		)
		return nil
	}

	options := make([]refs.Option, 0, len(rows))
	for _, row := range rows {
		opt := refs.Option{ID: row.ID}
		if name, ok := row.Fields[spec.NameField].(string); ok {
			opt.DisplayName = name
		}
		if spec.EmailField != "" {
			if email, ok := row.Fields[spec.EmailField].(string); ok {
				opt.Email = email
			}
		}
		options = append(options, opt)
	}

	return options
}

package tools

import (
	"context"
	"log/slog"
)

// Tool names as surfaced to the model.
const (
	NameGetTable     = "get_table"
	NameCreateRecord = "create_record"
	NameURLBuilder   = "url_builder"
	NameGetMembers   = "get_members"
)

// TableService is the subset of the table service client the tools need.
type TableService interface {
	GetApplication(ctx context.Context, tableID string) (map[string]any, error)
	CreateRecord(ctx context.Context, tableID string, fields map[string]any) (map[string]any, error)
	ListMembers(ctx context.Context) ([]map[string]any, error)
}

// Deps is everything the builtin tools need, injected once at startup.
type Deps struct {
	Tables     TableService
	AccountID  string
	SolutionID string
	// Confirmator, when set, is asked before create_record writes.
	Confirmator Confirmator
	Logger      *slog.Logger
}

// Builtin returns the four table-service tools in the order they are offered to the model.
func Builtin(deps Deps) []Tool {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return []Tool{
		&GetTableTool{tables: deps.Tables, logger: logger},
		&CreateRecordTool{tables: deps.Tables, confirmator: deps.Confirmator, logger: logger},
		&URLBuilderTool{accountID: deps.AccountID, solutionID: deps.SolutionID},
		&GetMembersTool{tables: deps.Tables, logger: logger},
	}
}

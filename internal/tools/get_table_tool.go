package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// GetTableTool fetches a table's structure so the model can map user input to field slugs.
type GetTableTool struct {
	builtin
	tables TableService
	logger *slog.Logger
}

type getTableArgs struct {
	TableID string `json:"tableId"`
}

func (g *GetTableTool) Name() string {
	return NameGetTable
}

func (g *GetTableTool) Description() string {
	return "Get the table and it's fields information."
}

func (g *GetTableTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"tableId": {
				Type:        jsonschema.String,
				Description: "ID of the table (application) to describe",
			},
		},
		Required: []string{"tableId"},
	}
}

func (g *GetTableTool) Invoke(ctx context.Context, raw json.RawMessage) Result {
	const op = "get table"

	var args getTableArgs
	if err := decodeArgs(g.Parameters(), raw, &args); err != nil {
		return Failure{Op: op, Err: err}
	}

	g.logger.Debug("fetching table", "table_id", args.TableID)
	table, err := g.tables.GetApplication(ctx, args.TableID)
	if err != nil {
		return Failure{Op: op, Err: err}
	}
	return Success{Value: table}
}

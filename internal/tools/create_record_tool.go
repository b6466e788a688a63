package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var ErrCancelled = errors.New("operation cancelled by user")

// CreateRecordTool writes a new record. Fields are forwarded to the table service untouched.
type CreateRecordTool struct {
	builtin
	tables      TableService
	confirmator Confirmator
	logger      *slog.Logger
}

type createRecordArgs struct {
	TableID string         `json:"tableId"`
	Fields  map[string]any `json:"fields"`
}

func (c *CreateRecordTool) Name() string {
	return NameCreateRecord
}

func (c *CreateRecordTool) Description() string {
	return "Create a SmartSuite record in a specified table with dynamic fields."
}

func (c *CreateRecordTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"tableId": {
				Type:        jsonschema.String,
				Description: "ID of the table (application) the record belongs to",
			},
			"fields": {
				Type:        jsonschema.Object,
				Description: "Record values keyed by field slug, e.g. {\"title\": \"Ship v1\"}",
			},
		},
		Required: []string{"tableId", "fields"},
	}
}

func (c *CreateRecordTool) Invoke(ctx context.Context, raw json.RawMessage) Result {
	const op = "create record"

	var args createRecordArgs
	if err := decodeArgs(c.Parameters(), raw, &args); err != nil {
		return Failure{Op: op, Err: err}
	}

	if c.confirmator != nil {
		summary, _ := json.Marshal(args.Fields)
		command := fmt.Sprintf("Create record in table %s with fields %s", args.TableID, summary)
		if !c.confirmator.RequestConfirmation("Create Record", command, true) {
			return Failure{Op: op, Err: ErrCancelled}
		}
	}

	c.logger.Debug("creating record", "table_id", args.TableID, "field_count", len(args.Fields))
	record, err := c.tables.CreateRecord(ctx, args.TableID, args.Fields)
	if err != nil {
		return Failure{Op: op, Err: err}
	}
	return Success{Value: record}
}

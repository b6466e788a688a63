package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Member is the projection of an account member handed to the model.
type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// GetMembersTool lists account members that can be assigned to records.
type GetMembersTool struct {
	builtin
	tables TableService
	logger *slog.Logger
}

func (g *GetMembersTool) Name() string {
	return NameGetMembers
}

func (g *GetMembersTool) Description() string {
	return "Get the list of members of the account."
}

func (g *GetMembersTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{},
	}
}

func (g *GetMembersTool) Invoke(ctx context.Context, raw json.RawMessage) Result {
	const op = "get members"

	var args struct{}
	if err := decodeArgs(g.Parameters(), raw, &args); err != nil {
		return Failure{Op: op, Err: err}
	}

	items, err := g.tables.ListMembers(ctx)
	if err != nil {
		return Failure{Op: op, Err: err}
	}
	members := projectMembers(items)
	g.logger.Debug("listed members", "total", len(items), "with_email", len(members))
	return Success{Value: members}
}

// projectMembers keeps members with a non-empty email and reduces them to {id, fullName}.
// Entries without a string id cannot be assigned, so they are dropped too.
func projectMembers(items []map[string]any) []Member {
	members := make([]Member, 0, len(items))
	for _, item := range items {
		if !truthy(item["email"]) {
			continue
		}
		id, ok := item["id"].(string)
		if !ok || id == "" {
			continue
		}
		members = append(members, Member{ID: id, FullName: fullName(item)})
	}
	return members
}

func fullName(item map[string]any) string {
	switch name := item["full_name"].(type) {
	case string:
		return name
	case map[string]any:
		root, _ := name["sys_root"].(string)
		return root
	}
	return ""
}

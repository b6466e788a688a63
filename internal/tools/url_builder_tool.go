package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const appURL = "https://app.smartsuite.com"

// BuildRecordURL returns the browser URL that opens recordID in applicationID.
func BuildRecordURL(accountID, solutionID, applicationID, recordID string) string {
	return fmt.Sprintf("%s/%s/solution/%s/%s?editRecord=%s",
		appURL,
		url.PathEscape(accountID),
		url.PathEscape(solutionID),
		url.PathEscape(applicationID),
		url.QueryEscape(recordID),
	)
}

// URLBuilderTool formats a record link. It performs no network call.
type URLBuilderTool struct {
	builtin
	accountID  string
	solutionID string
}

type urlBuilderArgs struct {
	ApplicationID string `json:"application_id"`
	ID            string `json:"id"`
}

func (u *URLBuilderTool) Name() string {
	return NameURLBuilder
}

func (u *URLBuilderTool) Description() string {
	return "Build the url of the created record."
}

func (u *URLBuilderTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"application_id": {
				Type:        jsonschema.String,
				Description: "ID of the table the record was created in",
			},
			"id": {
				Type:        jsonschema.String,
				Description: "ID of the created record, from the create_record response",
			},
		},
		Required: []string{"application_id", "id"},
	}
}

func (u *URLBuilderTool) Invoke(_ context.Context, raw json.RawMessage) Result {
	var args urlBuilderArgs
	if err := decodeArgs(u.Parameters(), raw, &args); err != nil {
		return Failure{Op: "build url", Err: err}
	}
	return Success{Value: BuildRecordURL(u.accountID, u.solutionID, args.ApplicationID, args.ID)}
}

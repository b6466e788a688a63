package prompt

import (
	"fmt"
	"sort"
	"strings"
)

const createRecordRules = `Before creating a record:
- Retrieve the fields of the table with the get_table tool.
- Map the user's input to the matching fields. Field slugs are case sensitive; use them exactly.

When calling create_record:
- Keep only tableId at the top level.
- Nest every user-provided value under "fields", keyed by field slug:
  {"tableId": "<table id>", "fields": {"<field slug>": <value>}}
- Status fields take {"value": "<option value>"}; assignee fields take a list of member ids.

If no matching field is found for something the user asked for:
- Create it as a new field: use the user's label as the key under "fields" and their value as the value.

When assigning a record to someone:
- Call get_members and use the member's id.

When the record has been created:
- Call url_builder with application_id set to the table id and id set to the created record id.
- Reply with the record URL.

If a tool returns a message starting with "Failed to":
- Explain the problem to the user in plain language. Do not invent a record URL.`

// CreateRecord returns the system instructions for the record-creation assistant.
// tables maps a human name to a table id.
func CreateRecord(tables map[string]string) string {
	var b strings.Builder
	b.WriteString("You are a SmartSuite assistant that creates records from the user's requests.\n")
	b.WriteString("Available tables (name: id):\n")

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, tables[name])
	}
	if len(names) == 0 {
		b.WriteString("- none configured; ask the user for a table id\n")
	}

	b.WriteString("\n")
	b.WriteString(createRecordRules)
	b.WriteString("\n")
	return b.String()
}

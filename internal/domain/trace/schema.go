package trace

import (
	"bytes"
	_ "embed"
	"errors"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://inkcheck.local/schema/submission-v1.schema.json"

// SubmissionSchema is the embedded JSON schema for POST /submit payloads.
//
//go:embed submission.schema.json
var SubmissionSchema []byte

var submissionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(SubmissionSchema)); err != nil {
		panic("trace: add submission schema: " + err.Error())
	}
	return c.MustCompile(schemaURL)
}

// validateShape checks a decoded payload against the submission schema and
// converts the first failure into a MalformedPayload error.
func validateShape(doc any) error {
	err := submissionSchema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return malformed("", err.Error())
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return malformed(pointerToField(ve.InstanceLocation), ve.Message)
}

// pointerToField renders a JSON pointer such as /events/2/time as
// events[2].time.
func pointerToField(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	var b strings.Builder
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(tok); err == nil {
			b.WriteString("[" + tok + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

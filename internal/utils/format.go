package utils

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
	"go.mongodb.org/mongo-driver/bson"
)

// FormatDocument renders doc as indented relaxed extended JSON.
func FormatDocument(doc any) ([]byte, error) {
	raw, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, errors.Wrap(err, "marshal extended json")
	}
	return pretty.Pretty(raw), nil
}

// FormatDocuments renders docs as a JSON array, one indented document per
// element.
func FormatDocuments(docs []bson.M) ([]byte, error) {
	if len(docs) == 0 {
		return []byte("[]\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, doc := range docs {
		out, err := FormatDocument(doc)
		if err != nil {
			return nil, err
		}
		buf.Write(bytes.TrimRight(out, "\n"))
		if i < len(docs)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

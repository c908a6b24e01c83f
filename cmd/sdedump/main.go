// Command sdedump is a debug tool for the SDE codecs: it reads a schema
// description and a raw DOC (BSON) document from disk, runs them through
// the record or index-key codec, and prints the round-tripped SDE bytes
// alongside the re-decoded DOC document.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/colbase/sde/indexkey"
	"github.com/colbase/sde/lowbits"
	"github.com/colbase/sde/record"
	"github.com/colbase/sde/schema"
	"github.com/colbase/sde/sdeconfig"
	"github.com/colbase/sde/sdeerr"
	"github.com/colbase/sde/sdelog"
)

// columnSpec is the on-disk JSON shape of one schema column in a schema
// description file.
type columnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	FixedLen int    `json:"fixedLen,omitempty"`
	UType    string `json:"utype,omitempty"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var schemaPath, docPath string
	var mode string
	var maxDepth int

	root := &cobra.Command{
		Use:   "sdedump",
		Short: "Round-trip a DOC document through the SDE record or index-key codec",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(schemaPath, docPath, mode, maxDepth)
		},
	}
	root.Flags().StringVar(&schemaPath, "schema", "", "path to a JSON schema description file")
	root.Flags().StringVar(&docPath, "doc", "", "path to a raw BSON document file")
	root.Flags().StringVar(&mode, "mode", "record", "codec to exercise: record or indexkey")
	root.Flags().IntVar(&maxDepth, "max-depth", sdeconfig.DefaultMaxDepth, "container recursion depth bound")
	_ = root.MarkFlagRequired("schema")
	_ = root.MarkFlagRequired("doc")
	return root
}

func runDump(schemaPath, docPath, mode string, maxDepth int) error {
	sch, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(docPath)
	if err != nil {
		return err
	}
	doc := bsoncore.Document(raw)
	if err := doc.Validate(); err != nil {
		return sdeerr.InvalidArgument("not a valid BSON document: %v", err)
	}

	cfg := sdeconfig.New(sdeconfig.WithMaxDepth(maxDepth))
	dst := lowbits.NewBuffer(nil)

	switch mode {
	case "record":
		if err := record.Encode(dst, sch, doc, nil, cfg); err != nil {
			return err
		}
	case "indexkey":
		if err := indexkey.Encode(dst, sch, doc); err != nil {
			return err
		}
	default:
		return sdeerr.InvalidArgument("unknown mode %q, want record or indexkey", mode)
	}

	encoded := dst.Bytes()
	sdelog.Debug("encoded record", map[string]interface{}{
		"mode":  mode,
		"bytes": len(encoded),
	})
	fmt.Printf("encoded (%d bytes): %s\n", len(encoded), hex.EncodeToString(encoded))

	var decoded bsoncore.Document
	switch mode {
	case "record":
		decoded, err = record.Decode(sch, encoded, cfg)
	case "indexkey":
		decoded, err = indexkey.Decode(sch, encoded)
	}
	if err != nil {
		return err
	}
	fmt.Println("decoded:", decoded.String())
	return nil
}

func loadSchema(path string) (*schema.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []columnSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, sdeerr.InvalidArgument("malformed schema file: %v", err)
	}

	columns := make([]schema.Column, len(specs))
	for i, s := range specs {
		ct, err := parseColumnType(s.Type)
		if err != nil {
			return nil, err
		}
		ut, err := parseUType(s.UType)
		if err != nil {
			return nil, err
		}
		columns[i] = schema.Column{
			Name: s.Name,
			Meta: schema.ColumnMeta{Type: ct, FixedLen: s.FixedLen, UType: ut},
		}
	}
	return schema.New(columns)
}

func parseColumnType(s string) (schema.ColumnType, error) {
	switch s {
	case "Sint08":
		return schema.Sint08, nil
	case "Uint08":
		return schema.Uint08, nil
	case "Sint16":
		return schema.Sint16, nil
	case "Uint16":
		return schema.Uint16, nil
	case "Sint32":
		return schema.Sint32, nil
	case "Uint32":
		return schema.Uint32, nil
	case "Sint64":
		return schema.Sint64, nil
	case "Uint64":
		return schema.Uint64, nil
	case "Float32":
		return schema.Float32, nil
	case "Float64":
		return schema.Float64, nil
	case "Float128":
		return schema.Float128, nil
	case "Fixed":
		return schema.Fixed, nil
	case "StrZero":
		return schema.StrZero, nil
	case "TwoStrZero":
		return schema.TwoStrZero, nil
	case "Binary":
		return schema.Binary, nil
	case "CarBin":
		return schema.CarBin, nil
	default:
		return 0, sdeerr.InvalidArgument("unknown column type %q", s)
	}
}

func parseUType(s string) (bsontype.Type, error) {
	switch s {
	case "", "Double":
		return bsontype.Double, nil
	case "String":
		return bsontype.String, nil
	case "Object":
		return bsontype.EmbeddedDocument, nil
	case "Array":
		return bsontype.Array, nil
	case "Binary":
		return bsontype.Binary, nil
	case "ObjectID":
		return bsontype.ObjectID, nil
	case "Boolean":
		return bsontype.Boolean, nil
	case "DateTime":
		return bsontype.DateTime, nil
	case "Int32":
		return bsontype.Int32, nil
	case "Timestamp":
		return bsontype.Timestamp, nil
	case "Int64":
		return bsontype.Int64, nil
	case "Regex":
		return bsontype.Regex, nil
	case "CodeWithScope":
		return bsontype.CodeWithScope, nil
	default:
		return 0, sdeerr.InvalidArgument("unknown DOC type %q", s)
	}
}

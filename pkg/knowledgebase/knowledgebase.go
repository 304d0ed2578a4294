// Package knowledgebase holds the SEAD training content: documentation, example
// question/SQL pairs and the DDL file set.
package knowledgebase

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sead/sqlassist/pkg/training"
)

const (
	TablesFile      = "sead_tables.sql"
	ForeignKeysFile = "sead_foreign_keys.sql"
	CommentsFile    = "sead_comments.sql"
)

var (
	//go:embed content/documentation.yaml
	documentationYAML []byte
	//go:embed content/examples.yaml
	examplesYAML []byte
)

type documentationFile struct {
	Documentation []string `yaml:"documentation"`
}

type examplesFile struct {
	Examples []training.Example `yaml:"examples"`
}

func Documentation() ([]string, error) {
	var f documentationFile
	if err := decodeStrict(documentationYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to decode documentation: %w", err)
	}
	return f.Documentation, nil
}

func Examples() ([]training.Example, error) {
	var f examplesFile
	if err := decodeStrict(examplesYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to decode examples: %w", err)
	}
	for i, ex := range f.Examples {
		if ex.SQL == "" {
			return nil, fmt.Errorf("example %d has no sql", i)
		}
	}
	return f.Examples, nil
}

// DDLFiles lists the table, foreign key and comment definitions under dir.
func DDLFiles(dir string) []string {
	return []string{
		filepath.Join(dir, TablesFile),
		filepath.Join(dir, ForeignKeysFile),
		filepath.Join(dir, CommentsFile),
	}
}

// Sources assembles everything a training run ingests.
func Sources(ddlDir string) (training.Sources, error) {
	docs, err := Documentation()
	if err != nil {
		return training.Sources{}, err
	}
	examples, err := Examples()
	if err != nil {
		return training.Sources{}, err
	}
	return training.Sources{
		DDLFiles:      DDLFiles(ddlDir),
		Documentation: docs,
		Examples:      examples,
	}, nil
}

func decodeStrict(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}

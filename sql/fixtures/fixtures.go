// Copyright 2021 Rivulet Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fixtures loads YAML catalog fixtures for tests. Tables go
// through the real DDL path, so fixture catalogs carry the same column
// ids and synthesized row ids as live ones.
package fixtures

import (
	"gopkg.in/yaml.v2"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/planbuilder"
	"github.com/rivuletdata/rivulet/sql/types"
)

type columnSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

type tableSpec struct {
	Name       string       `yaml:"name"`
	Columns    []columnSpec `yaml:"columns"`
	PrimaryKey []string     `yaml:"primary_key"`
	RowFormat  string       `yaml:"row_format"`
}

type catalogSpec struct {
	Tables []tableSpec `yaml:"tables"`
}

// Catalog parses a YAML catalog fixture:
//
//	tables:
//	  - name: t
//	    columns:
//	      - {name: v1, type: Int32}
//	      - {name: v2, type: Int32}
func Catalog(src string) (*sql.Catalog, error) {
	var spec catalogSpec
	if err := yaml.Unmarshal([]byte(src), &spec); err != nil {
		return nil, err
	}

	catalog := sql.NewCatalog()
	builder := planbuilder.New(catalog, "")
	ctx := sql.NewEmptyContext()

	var tables []*sql.Table
	for _, t := range spec.Tables {
		stmt := &ast.CreateTable{
			Name:       t.Name,
			PrimaryKey: t.PrimaryKey,
			RowFormat:  t.RowFormat,
		}
		for _, c := range t.Columns {
			typ, ok := types.FromName(c.Type)
			if !ok {
				return nil, sql.ErrInvalidInputSyntax.New("unknown type " + c.Type)
			}
			stmt.Columns = append(stmt.Columns, ast.ColumnDef{
				Name:     c.Name,
				Type:     typ,
				Nullable: c.Nullable,
			})
		}
		desc, err := builder.BuildTableDescriptor(ctx, stmt)
		if err != nil {
			return nil, err
		}
		tables = append(tables, planbuilder.TableFromDescriptor(desc))
	}
	return sql.NewCatalog(tables...), nil
}

// MustCatalog is Catalog for fixtures known to be well-formed.
func MustCatalog(src string) *sql.Catalog {
	c, err := Catalog(src)
	if err != nil {
		panic(err)
	}
	return c
}

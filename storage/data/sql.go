// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gorse-io/hybrid/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLDatabase implements the data store on SQL databases.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := db.Table(d.ExamplesTable()).AutoMigrate(&Example{}); err != nil {
		return errors.Trace(err)
	}
	if err := db.Table(d.RatingsTable()).AutoMigrate(&Rating{}); err != nil {
		return errors.Trace(err)
	}
	if err := db.Table(d.BiasesTable()).AutoMigrate(&Bias{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return d.client.Ping()
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) Purge() error {
	for _, tableName := range []string{d.ExamplesTable(), d.RatingsTable(), d.BiasesTable()} {
		if err := d.gormDB.Exec(fmt.Sprintf("DELETE FROM %s", tableName)).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BatchInsertExamples inserts examples. An example with an existing id replaces the stored one.
func (d *SQLDatabase) BatchInsertExamples(ctx context.Context, examples []Example) error {
	if len(examples) == 0 {
		return nil
	}
	for _, example := range examples {
		if example.Label != 1 && example.Label != -1 {
			return errors.NotValidf("label %v of example %d", example.Label, example.Id)
		}
	}
	err := d.gormDB.WithContext(ctx).Table(d.ExamplesTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&examples).Error
	return errors.Trace(err)
}

// GetExamples returns all examples ordered by id.
func (d *SQLDatabase) GetExamples(ctx context.Context) ([]Example, error) {
	var examples []Example
	if err := d.gormDB.WithContext(ctx).Table(d.ExamplesTable()).Order("id").Find(&examples).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return examples, nil
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		UpdateAll: true,
	}).Create(&ratings).Error
	return errors.Trace(err)
}

// CountItemRatings returns the number of ratings received by each rated item.
func (d *SQLDatabase) CountItemRatings(ctx context.Context) (map[string]int, error) {
	rows, err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Select("item_id, COUNT(*)").Group("item_id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var itemId string
		var count int
		if err = rows.Scan(&itemId, &count); err != nil {
			return nil, errors.Trace(err)
		}
		counts[itemId] = count
	}
	return counts, errors.Trace(rows.Err())
}

func (d *SQLDatabase) BatchInsertBiases(ctx context.Context, biases []Bias) error {
	if len(biases) == 0 {
		return nil
	}
	for _, bias := range biases {
		switch bias.Kind {
		case GlobalBias:
			if bias.Id != "" {
				return errors.NotValidf("global bias with id %q", bias.Id)
			}
		case UserBias, ItemBias:
		default:
			return errors.NotValidf("bias kind %q", bias.Kind)
		}
	}
	err := d.gormDB.WithContext(ctx).Table(d.BiasesTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
		UpdateAll: true,
	}).Create(&biases).Error
	return errors.Trace(err)
}

// GetBiases returns all biases ordered by kind and id.
func (d *SQLDatabase) GetBiases(ctx context.Context) ([]Bias, error) {
	var biases []Bias
	if err := d.gormDB.WithContext(ctx).Table(d.BiasesTable()).Order("kind, id").Find(&biases).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return biases, nil
}

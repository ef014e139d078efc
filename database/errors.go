/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// SQLError classifies driver errors independently of the dialect.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
)

var mysqlErrorCodes = map[uint16]SQLError{
	1054: NoColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
}

// message fragments produced by lib/pq and the sqlite drivers, checked in order;
// every fragment of an entry must be present
var sqlErrorPatterns = []struct {
	kind      SQLError
	fragments []string
}{
	{NoColumnErr, []string{"sqlstate 42703"}},
	{NoColumnErr, []string{"no such column"}},
	{NoColumnErr, []string{"column \"", "does not exist"}},
	{NoTableErr, []string{"sqlstate 42p01"}},
	{NoTableErr, []string{"no such table"}},
	{NoTableErr, []string{"relation \"", "does not exist"}},
	{ExistTableErr, []string{"sqlstate 42p07"}},
	{ExistTableErr, []string{"table", "already exists"}},
	{ExistTableErr, []string{"relation", "already exists"}},
	{DuplicateKeyErr, []string{"duplicate key value"}},
	{DuplicateKeyErr, []string{"unique constraint failed"}},
	{DuplicateKeyErr, []string{"sqlstate 23505"}},
	{NotNullViolationErr, []string{"not-null constraint"}},
	{NotNullViolationErr, []string{"not null constraint failed"}},
	{NotNullViolationErr, []string{"sqlstate 23502"}},
	{ForeignKeyViolationErr, []string{"foreign key"}},
	{ForeignKeyViolationErr, []string{"sqlstate 23503"}},
	{CheckConstraintViolationErr, []string{"check constraint"}},
	{CheckConstraintViolationErr, []string{"sqlstate 23514"}},
	{DataTruncatedErr, []string{"string data right truncation"}},
	{DataTruncatedErr, []string{"data truncated"}},
	{DataTruncatedErr, []string{"sqlstate 22001"}},
}

// IsSqlError reports whether err came from the database and which kind it is.
// The repository never translates store errors; callers use this to branch on them.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrorCodes[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}

	s := strings.ToLower(err.Error())
	for _, p := range sqlErrorPatterns {
		if containsAll(s, p.fragments) {
			return true, p.kind
		}
	}
	return false, UnknownErr
}

func containsAll(s string, fragments []string) bool {
	for _, f := range fragments {
		if !strings.Contains(s, f) {
			return false
		}
	}
	return true
}

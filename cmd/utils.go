package cmd

import (
	"encoding/csv"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/mysql"
	"github.com/pkg/errors"

	"github.com/adi64/hyrise/planner"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/utils"
)

// loadSchema parses the CREATE TABLE statements of the given schema file
// and registers empty tables in the catalog.
func loadSchema(catalog *storage.Catalog, schemaPath string, chunkCapacity uint) error {
	stmts, err := utils.ParseRawSQLsFromFile(schemaPath)
	if err != nil {
		return errors.Wrapf(err, "load schema from %v", schemaPath)
	}
	for _, stmt := range stmts {
		node, err := planner.ParseOneSQL(stmt)
		if err != nil {
			return err
		}
		create, ok := node.(*ast.CreateTableStmt)
		if !ok {
			utils.Debugf("skipping non-CREATE-TABLE schema statement %T", node)
			continue
		}
		columns := make([]storage.ColumnDefinition, 0, len(create.Cols))
		for _, col := range create.Cols {
			columns = append(columns, storage.ColumnDefinition{
				Name: col.Name.Name.L,
				Type: dataTypeOf(col.Tp.Tp),
			})
		}
		var opts []storage.TableOption
		if chunkCapacity > 0 {
			opts = append(opts, storage.WithChunkCapacity(storage.ChunkOffset(chunkCapacity)))
		}
		table := storage.NewTable(create.Table.Name.L, columns, opts...)
		if err := catalog.AddTable(table); err != nil {
			return err
		}
		utils.Infof("loaded table %v with %d columns", table.Name(), len(columns))
	}
	return nil
}

func dataTypeOf(tp byte) storage.DataType {
	switch tp {
	case mysql.TypeTiny, mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong, mysql.TypeYear:
		return storage.TypeInt64
	case mysql.TypeFloat, mysql.TypeDouble, mysql.TypeNewDecimal:
		return storage.TypeFloat64
	default:
		return storage.TypeString
	}
}

// loadData fills catalog tables from <dataDir>/<table>.csv files. Missing
// files are skipped so schema-only runs stay possible.
func loadData(catalog *storage.Catalog, dataDir string) error {
	for _, tableName := range catalog.TableNames() {
		fpath := path.Join(dataDir, tableName+".csv")
		if exist, isDir := utils.FileExists(fpath); !exist || isDir {
			utils.Debugf("no data file for table %v", tableName)
			continue
		}
		table, err := catalog.Table(tableName)
		if err != nil {
			return err
		}
		f, err := os.Open(fpath)
		if err != nil {
			return errors.Wrapf(err, "open %v", fpath)
		}
		reader := csv.NewReader(f)
		records, err := reader.ReadAll()
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "read %v", fpath)
		}
		for _, record := range records {
			row := make([]storage.Value, len(record))
			for i, field := range record {
				row[i] = parseValue(field, table.ColumnType(storage.ColumnID(i)))
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		utils.Infof("loaded %d rows into table %v", len(records), tableName)
	}
	return nil
}

func parseValue(field string, dataType storage.DataType) storage.Value {
	field = strings.TrimSpace(field)
	if field == "" || strings.EqualFold(field, "null") {
		return storage.NullValue()
	}
	switch dataType {
	case storage.TypeInt64:
		if v, err := strconv.ParseInt(field, 10, 64); err == nil {
			return storage.Int64Value(v)
		}
	case storage.TypeFloat64:
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			return storage.Float64Value(v)
		}
	case storage.TypeBool:
		if v, err := strconv.ParseBool(field); err == nil {
			return storage.BoolValue(v)
		}
	}
	return storage.StringValue(field)
}

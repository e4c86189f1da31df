package population

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/daysim/daysim/internal/model"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// DuckDBReader uses DuckDB's read_csv_auto for CSV parsing and typing.
type DuckDBReader struct {
	db *sql.DB
}

// NewDuckDBReader opens an in-memory DuckDB.
func NewDuckDBReader() (*DuckDBReader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "open duckdb")
	}
	return &DuckDBReader{db: db}, nil
}

// Close closes the DuckDB connection.
func (r *DuckDBReader) Close() error {
	return r.db.Close()
}

// ColumnInfo holds column metadata.
type ColumnInfo struct {
	Name string
	Type string
}

// Columns retrieves the schema DuckDB infers for a CSV file.
func (r *DuckDBReader) Columns(ctx context.Context, csvPath string) ([]ColumnInfo, error) {
	query := fmt.Sprintf(`DESCRIBE SELECT * FROM read_csv_auto(%s, header=true, sample_size=1000)`, quote(csvPath))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "read csv schema").WithContext("path", csvPath)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var name, dtype string
		var null, key, dflt, extra interface{}
		if err := rows.Scan(&name, &dtype, &null, &key, &dflt, &extra); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnInfo{Name: name, Type: dtype})
	}
	return columns, rows.Err()
}

// selectList builds the projection for a table: required columns must be
// present, optional ones fall back to their default.
func (r *DuckDBReader) selectList(ctx context.Context, table, csvPath string, required []string, optional map[string]string) (string, error) {
	columns, err := r.Columns(ctx, csvPath)
	if err != nil {
		return "", err
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[strings.ToLower(c.Name)] = true
	}

	exprs := make([]string, 0, len(required)+len(optional))
	for _, name := range required {
		if !present[name] {
			return "", simerrors.MissingColumn(table, name).WithContext("path", csvPath)
		}
		exprs = append(exprs, fmt.Sprintf(`CAST("%s" AS BIGINT)`, name))
	}
	for _, name := range sortedKeys(optional) {
		if present[name] {
			exprs = append(exprs, fmt.Sprintf(`COALESCE(CAST("%s" AS BIGINT), %s)`, name, optional[name]))
		} else {
			exprs = append(exprs, optional[name])
		}
	}
	return strings.Join(exprs, ", "), nil
}

// ReadParcels reads parcel_id, x, y and the optional zone_id.
func (r *DuckDBReader) ReadParcels(ctx context.Context, csvPath string) (model.Parcels, error) {
	columns, err := r.Columns(ctx, csvPath)
	if err != nil {
		return nil, err
	}
	present := map[string]bool{}
	for _, c := range columns {
		present[strings.ToLower(c.Name)] = true
	}
	for _, name := range []string{"parcel_id", "x", "y"} {
		if !present[name] {
			return nil, simerrors.MissingColumn("parcels", name).WithContext("path", csvPath)
		}
	}
	zone := "0"
	if present["zone_id"] {
		zone = `COALESCE(CAST("zone_id" AS BIGINT), 0)`
	}

	query := fmt.Sprintf(`
		SELECT CAST("parcel_id" AS BIGINT), %s, CAST("x" AS DOUBLE), CAST("y" AS DOUBLE)
		FROM read_csv_auto(%s, header=true)
	`, zone, quote(csvPath))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "read parcels").WithContext("path", csvPath)
	}
	defer rows.Close()

	parcels := model.Parcels{}
	for rows.Next() {
		var p model.Parcel
		var id, zoneID int64
		if err := rows.Scan(&id, &zoneID, &p.X, &p.Y); err != nil {
			return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "scan parcel").WithContext("path", csvPath)
		}
		p.ID, p.ZoneID = int(id), int(zoneID)
		parcels[p.ID] = p
	}
	return parcels, rows.Err()
}

// ReadHouseholds reads households and attaches their persons. Households
// come back ordered by id; persons by sequence.
func (r *DuckDBReader) ReadHouseholds(ctx context.Context, householdsPath, personsPath string) ([]*model.Household, error) {
	hhCols, err := r.selectList(ctx, "households", householdsPath,
		[]string{"household_id", "residence_parcel"},
		map[string]string{"vehicles": "-1", "income": "0"})
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM read_csv_auto(%s, header=true) ORDER BY 1`, hhCols, quote(householdsPath))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "read households").WithContext("path", householdsPath)
	}

	var households []*model.Household
	byID := map[int]*model.Household{}
	for rows.Next() {
		var id, residence, income, vehicles int64
		// Optional columns are projected in sorted name order.
		if err := rows.Scan(&id, &residence, &income, &vehicles); err != nil {
			rows.Close()
			return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "scan household").WithContext("path", householdsPath)
		}
		hh := &model.Household{
			ID:              int(id),
			ResidenceParcel: int(residence),
			Vehicles:        int(vehicles),
			Income:          int(income),
		}
		households = append(households, hh)
		byID[hh.ID] = hh
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pCols, err := r.selectList(ctx, "persons", personsPath,
		[]string{"household_id", "person_sequence", "age", "person_type"},
		map[string]string{"usual_school_parcel": "0", "usual_work_parcel": "0"})
	if err != nil {
		return nil, err
	}
	query = fmt.Sprintf(`SELECT %s FROM read_csv_auto(%s, header=true) ORDER BY 1, 2`, pCols, quote(personsPath))
	rows, err = r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "read persons").WithContext("path", personsPath)
	}
	defer rows.Close()

	for rows.Next() {
		var hhID, seq, age, ptype, school, work int64
		if err := rows.Scan(&hhID, &seq, &age, &ptype, &school, &work); err != nil {
			return nil, simerrors.Wrap(err, simerrors.CodeInvalidFormat, "scan person").WithContext("path", personsPath)
		}
		hh, ok := byID[int(hhID)]
		if !ok {
			return nil, simerrors.Newf(simerrors.CodeInvalidFormat, "person of unknown household %d", hhID).
				WithContext("path", personsPath)
		}
		hh.Persons = append(hh.Persons, &model.Person{
			Sequence:          int(seq),
			Age:               int(age),
			Type:              model.PersonType(ptype),
			UsualWorkParcel:   int(work),
			UsualSchoolParcel: int(school),
		})
	}
	return households, rows.Err()
}

// quote renders a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

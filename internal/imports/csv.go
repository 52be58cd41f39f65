package imports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type column int

const (
	colWaybillNumber column = iota
	colProjectName
	colSupplierName
	colWaybillDate
	colDeliveryDate
	colProductCode
	colQuantity
	colUnitPrice
	colTotalAmount
	colStatus
	colTenantID
)

// headerAliases maps normalized header names to columns. Normalization
// lowers the name and strips underscores, hyphens and spaces, so
// "Waybill Number", "waybill_number" and "WAYBILL-NUMBER" all match.
var headerAliases = map[string]column{
	"waybillnumber": colWaybillNumber,
	"waybillid":     colWaybillNumber,
	"waybill":       colWaybillNumber,
	"projectname":   colProjectName,
	"project":       colProjectName,
	"suppliername":  colSupplierName,
	"supplier":      colSupplierName,
	"waybilldate":   colWaybillDate,
	"deliverydate":  colDeliveryDate,
	"productcode":   colProductCode,
	"product":       colProductCode,
	"quantity":      colQuantity,
	"qty":           colQuantity,
	"unitprice":     colUnitPrice,
	"price":         colUnitPrice,
	"totalamount":   colTotalAmount,
	"total":         colTotalAmount,
	"status":        colStatus,
	"waybillstatus": colStatus,
	"tenantid":      colTenantID,
	"tenant":        colTenantID,
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
}

// rawRow is one data row after column mapping. Malformed rows keep their
// line number but carry no fields.
type rawRow struct {
	lineNumber int
	fields     map[column]string
	malformed  bool
}

func (r rawRow) get(c column) string {
	return strings.TrimSpace(r.fields[c])
}

// ErrEmptyFile rejects a payload without a header row.
var ErrEmptyFile = errors.New("file has no header row")

// readRows parses the CSV stream into mapped rows. Unknown columns are
// ignored; a data row whose field count differs from the header, or that
// the CSV parser cannot read, is returned as malformed. Line numbers are
// 1-based with the header on line 1.
func readRows(r io.Reader) ([]rawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[int]column)
	for i, name := range header {
		if col, ok := headerAliases[normalizeHeader(name)]; ok {
			columns[i] = col
		}
	}

	var rows []rawRow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rows = append(rows, rawRow{lineNumber: line, malformed: true})
			continue
		}
		if len(record) != len(header) {
			rows = append(rows, rawRow{lineNumber: line, malformed: true})
			continue
		}
		fields := make(map[column]string)
		for i, value := range record {
			if col, ok := columns[i]; ok {
				fields[col] = value
			}
		}
		rows = append(rows, rawRow{lineNumber: line, fields: fields})
	}
	return rows, nil
}

// Package inspect summarizes a log file without converting it: the entry
// inventory, declared struct schemas, and record counts, optionally
// exported as an Excel workbook.
package inspect

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/logtab/logtab/pkg/datalog"
	"github.com/logtab/logtab/pkg/decode"
	"github.com/logtab/logtab/pkg/errors"
)

// EntrySummary describes one entry observed in a log.
type EntrySummary struct {
	ID       uint32
	Name     string
	Type     string
	Metadata string
	Records  int

	// FirstSeen and LastSeen are data record timestamps in microseconds.
	FirstSeen uint64
	LastSeen  uint64
}

// Report is the result of inspecting one log file.
type Report struct {
	Path        string
	Version     uint16
	ExtraHeader string

	Records        int
	ControlRecords int
	DataRecords    int
	Orphaned       int // data records for entries never started

	Entries []EntrySummary
	Schemas []decode.StructSchema
}

// Inspect scans a log file and builds its report.
func Inspect(path string) (*Report, error) {
	reader, err := datalog.Open(path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Path:        path,
		Version:     reader.Version(),
		ExtraHeader: reader.ExtraHeader(),
	}

	entries := decode.NewEntryRegistry()
	schemas := decode.NewSchemaRegistry()
	summaries := make(map[uint32]*EntrySummary)

	iter, err := reader.Records()
	if err != nil {
		return nil, err
	}
	for {
		rec, ok := iter.Next()
		if !ok {
			break
		}
		report.Records++

		if rec.IsControl() {
			report.ControlRecords++
			if rec.IsStart() {
				start, err := rec.StartData()
				if err != nil {
					return nil, err
				}
				entries.OnStart(start)
				if _, seen := summaries[start.Entry]; !seen {
					summaries[start.Entry] = &EntrySummary{
						ID:       start.Entry,
						Name:     start.Name,
						Type:     start.Type,
						Metadata: start.Metadata,
					}
				}
			}
			continue
		}

		report.DataRecords++
		ent, ok := entries.Lookup(rec.Entry)
		if !ok {
			report.Orphaned++
			continue
		}

		if ent.Tag.Type == decode.TypeStructSchema {
			// Best-effort: a malformed declaration still counts as a record.
			schemas.RegisterDeclaration(ent.Name, rec.String())
		}

		sum := summaries[rec.Entry]
		if sum.Records == 0 || rec.Timestamp < sum.FirstSeen {
			sum.FirstSeen = rec.Timestamp
		}
		if rec.Timestamp > sum.LastSeen {
			sum.LastSeen = rec.Timestamp
		}
		sum.Records++
	}

	for _, sum := range summaries {
		report.Entries = append(report.Entries, *sum)
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].ID < report.Entries[j].ID
	})

	for _, name := range schemas.Names() {
		if schema, ok := schemas.Resolve(name); ok {
			report.Schemas = append(report.Schemas, schema)
		}
	}

	return report, nil
}

// WriteXLSX exports the report as an Excel workbook with Summary, Entries,
// and Schemas sheets.
func (r *Report) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	f.SetSheetName("Sheet1", summary)
	summaryRows := [][]interface{}{
		{"File", r.Path},
		{"Version", fmt.Sprintf("%d.%d", r.Version>>8, r.Version&0xFF)},
		{"Extra header", r.ExtraHeader},
		{"Total records", r.Records},
		{"Control records", r.ControlRecords},
		{"Data records", r.DataRecords},
		{"Orphaned records", r.Orphaned},
		{"Entries", len(r.Entries)},
		{"Struct schemas", len(r.Schemas)},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to write summary sheet")
		}
	}

	entriesSheet := "Entries"
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to create entries sheet")
	}
	header := []interface{}{"ID", "Name", "Type", "Metadata", "Records", "First (s)", "Last (s)"}
	if err := f.SetSheetRow(entriesSheet, "A1", &header); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write entries sheet")
	}
	for i, e := range r.Entries {
		row := []interface{}{
			e.ID, e.Name, e.Type, e.Metadata, e.Records,
			float64(e.FirstSeen) / 1_000_000,
			float64(e.LastSeen) / 1_000_000,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(entriesSheet, cell, &row); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to write entries sheet")
		}
	}

	schemasSheet := "Schemas"
	if _, err := f.NewSheet(schemasSheet); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to create schemas sheet")
	}
	schemaHeader := []interface{}{"Schema", "Field", "Type"}
	if err := f.SetSheetRow(schemasSheet, "A1", &schemaHeader); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write schemas sheet")
	}
	rowNum := 2
	for _, schema := range r.Schemas {
		for _, field := range schema.Fields {
			row := []interface{}{schema.Name, field.Name, field.Type}
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(schemasSheet, cell, &row); err != nil {
				return errors.Wrap(err, errors.CodeWriteFailed, "failed to write schemas sheet")
			}
			rowNum++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to save workbook").
			WithContext("path", path)
	}
	return nil
}

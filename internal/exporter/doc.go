// Package exporter writes pain-region frequency tables as CSV or XLSX.
//
// CSV output starts with a UTF-8 BOM so Excel opens accented region names
// correctly. XLSX output holds the table, a column chart and a sheet listing
// the filters that produced it.
//
// Example usage:
//
//	report, _ := dashboard.Frequency(ctx, criteria)
//	if err := exporter.WriteFrequencyCSV(w, report); err != nil {
//	    return err
//	}
package exporter

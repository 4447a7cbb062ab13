package simulate

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"index",
	"timestamp",
	"demand_mw",
	"wind_available_mw",
	"wind_mw",
	"curtailed_mw",
	"gas_mw",
	"line_flow_mw",
	"electrolyzer_mw",
	"fuel_cell_mw",
	"store_power_mw",
	"store_level_mwh",
	"action",
	"cost",
	"cum_cost",
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteLedger(f, ledger); err != nil {
		return err
	}
	return f.Close()
}

// WriteLedger writes the ledger as CSV with a header row.
func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(ledgerHeader); err != nil {
		return err
	}
	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.Timestamp),
			fmtFloat(r.DemandMW),
			fmtFloat(r.WindAvailableMW),
			fmtFloat(r.WindMW),
			fmtFloat(r.CurtailedMW),
			fmtFloat(r.GasMW),
			fmtFloat(r.LineFlowMW),
			fmtFloat(r.ElectrolyzerMW),
			fmtFloat(r.FuelCellMW),
			fmtFloat(r.StorePowerMW),
			fmtFloat(r.StoreLevelMWh),
			string(r.Action),
			fmtFloat(r.Cost),
			fmtFloat(r.CumCost),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

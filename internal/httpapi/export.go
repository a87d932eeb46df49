package httpapi

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"savdo/backend/internal/domain"
)

var receiptCSVHeader = []string{"ID", "User", "Created at", "Ready", "Total", "Description"}

func writeReceiptsCSV(w io.Writer, receipts []domain.ReceiptView, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(receiptCSVHeader); err != nil {
		return err
	}
	for _, r := range receipts {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.Username,
			r.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			strconv.FormatBool(r.Ready),
			r.Total,
			r.Description,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

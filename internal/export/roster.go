package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/pawloft/daycare/internal/booking"
)

const rosterSheetName = "Roster"

// Roster renders the day sheet staff print each morning.
type Roster struct {
	store booking.Store
}

// NewRoster builds a roster exporter over the booking store.
func NewRoster(store booking.Store) (*Roster, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", booking.ErrInvalidServiceConfig)
	}
	return &Roster{store: store}, nil
}

// Daily builds an xlsx workbook listing every active booking covering the
// date, one row per booking with its dogs.
func (roster *Roster) Daily(ctx context.Context, date booking.Date) ([]byte, error) {
	bookings, err := roster.store.ListBookingsOnDate(ctx, date)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(rosterSheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	file.DeleteSheet("Sheet1")

	_ = file.SetCellValue(rosterSheetName, "A1", fmt.Sprintf("Daily roster %s", date.String()))
	_ = file.MergeCell(rosterSheetName, "A1", "F1")
	titleStyle, _ := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = file.SetCellStyle(rosterSheetName, "A1", "F1", titleStyle)

	headers := []string{"Service", "Dogs", "Status", "From", "To", "Notes"}
	headerStyle, _ := file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for column, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(column+1, 2)
		_ = file.SetCellValue(rosterSheetName, cell, header)
		_ = file.SetCellStyle(rosterSheetName, cell, cell, headerStyle)
	}

	row := 3
	for _, record := range bookings {
		if !record.Status.CountsTowardCapacity() {
			continue
		}
		dogNames, err := roster.dogNames(ctx, record)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			string(record.ServiceKind),
			strings.Join(dogNames, ", "),
			record.Status.String(),
			record.StartDate.String(),
			record.EndDate.String(),
			record.Notes,
		}
		for column, value := range values {
			cell, _ := excelize.CoordinatesToCellName(column+1, row)
			_ = file.SetCellValue(rosterSheetName, cell, value)
		}
		row++
	}

	_ = file.SetColWidth(rosterSheetName, "A", "A", 12)
	_ = file.SetColWidth(rosterSheetName, "B", "B", 30)
	_ = file.SetColWidth(rosterSheetName, "C", "F", 14)

	buffer, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

func (roster *Roster) dogNames(ctx context.Context, record booking.Booking) ([]string, error) {
	dogIDs := make([]uuid.UUID, 0, len(record.Dogs))
	for _, bookingDog := range record.Dogs {
		dogIDs = append(dogIDs, bookingDog.DogID)
	}
	dogs, err := roster.store.GetDogs(ctx, dogIDs)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dogs))
	for _, dog := range dogs {
		names = append(names, dog.Name)
	}
	return names, nil
}

package workouts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/2beens/workouttracker/pkg"
)

var (
	ErrMissingOrderIDColumn = errors.New("column 'order_id' not found")
	ErrEmptySpreadsheet     = errors.New("spreadsheet has no rows")
)

// ImportRow is one exercise line of an imported training plan.
type ImportRow struct {
	Line     int // spreadsheet row number, for messages
	OrderID  int
	Group    string
	Exercise string
	Sets     string
	Reps     string
	RPE      string
}

const (
	colOrderID  = "order_id"
	colGroup    = "group"
	colExercise = "exercise"
	colSets     = "sets"
	colReps     = "reps"
	colRPE      = "rpe"
)

// header aliases, matched after trimming and lower-casing
var columnAliases = map[string]string{
	"order_id":    colOrderID,
	"order":       colOrderID,
	"group":       colGroup,
	"grupo":       colGroup,
	"exercise":    colExercise,
	"exercicio":   colExercise,
	"exercício":   colExercise,
	"sets":        colSets,
	"séries":      colSets,
	"series":      colSets,
	"reps":        colReps,
	"repetitions": colReps,
	"repetições":  colReps,
	"repeticoes":  colReps,
	"rpe":         colRPE,
}

// ParseSpreadsheet reads the first sheet of an .xlsx document. The first row is the header.
func ParseSpreadsheet(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySpreadsheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return parseRows(rows)
}

func parseRows(rows [][]string) ([]ImportRow, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySpreadsheet
	}

	columns := map[string]int{}
	for i, header := range rows[0] {
		name, ok := columnAliases[strings.ToLower(strings.TrimSpace(header))]
		if !ok {
			continue
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}
	if _, ok := columns[colOrderID]; !ok {
		return nil, ErrMissingOrderIDColumn
	}

	cell := func(row []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var msgs pkg.Messages
	importRows := make([]ImportRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if isBlankRow(row) {
			continue
		}

		orderID, err := parseOrderID(cell(row, colOrderID))
		if err != nil {
			msgs.Add(fmt.Sprintf("Row %d: order_id must be a whole number between 1 and %d.", rowNumber, MaxOrderID))
			continue
		}

		importRows = append(importRows, ImportRow{
			Line:     rowNumber,
			OrderID:  orderID,
			Group:    cell(row, colGroup),
			Exercise: cell(row, colExercise),
			Sets:     wholeNumber(cell(row, colSets)),
			Reps:     wholeNumber(cell(row, colReps)),
			RPE:      wholeNumber(cell(row, colRPE)),
		})
	}
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	return importRows, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseOrderID(raw string) (int, error) {
	raw = wholeNumber(raw)
	orderID, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if orderID <= 0 {
		return 0, fmt.Errorf("order id %d not positive", orderID)
	}
	if orderID > MaxOrderID {
		return 0, fmt.Errorf("order id %d too large", orderID)
	}
	return orderID, nil
}

// wholeNumber turns spreadsheet renderings like "3.0" into "3", other values are left as they are.
func wholeNumber(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return raw
	}
	return strconv.Itoa(int(f))
}

// groupImportRows builds one workout per distinct order id, in order of first appearance.
// The workout is named after the group of its first row.
func groupImportRows(userID int, rows []ImportRow) ([]Workout, error) {
	var msgs pkg.Messages
	byOrder := map[int]int{}
	workouts := make([]Workout, 0)

	for i, row := range rows {
		idx, ok := byOrder[row.OrderID]
		if !ok {
			in := WorkoutInput{
				Name:        strings.TrimSpace(row.Group),
				Description: fmt.Sprintf("Workout %d", row.OrderID),
				OrderID:     row.OrderID,
			}
			for _, m := range in.Validate() {
				msgs.Add(fmt.Sprintf("Workout %d: %s", row.OrderID, m))
			}
			workouts = append(workouts, Workout{
				UserID:      userID,
				Name:        in.Name,
				Description: in.Description,
				OrderID:     in.OrderID,
			})
			idx = len(workouts) - 1
			byOrder[row.OrderID] = idx
		}

		exercise, exMsgs := ExerciseInput{
			Name:        row.Exercise,
			Sets:        row.Sets,
			Repetitions: row.Reps,
			RPE:         row.RPE,
		}.Parse()
		line := row.Line
		if line == 0 {
			line = i + 1
		}
		for _, m := range exMsgs {
			msgs.Add(fmt.Sprintf("Row %d: %s", line, m))
		}
		workouts[idx].Exercises = append(workouts[idx].Exercises, exercise)
	}

	if err := msgs.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

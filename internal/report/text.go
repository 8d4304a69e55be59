package report

import (
	"fmt"
	"io"
	"strconv"
)

// PrintSolution 以文本方式输出最优解
func PrintSolution(w io.Writer, rows []Row, penalty float64) error {
	if _, err := fmt.Fprintln(w, "\nBest solution found:"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s (%s) -> Shelf %s (%s)\n", row.ProductID, row.ProductName, row.ShelfID, row.ShelfName); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nBest Fitness (Total Penalty): %s\n", strconv.FormatFloat(penalty, 'f', -1, 64))
	return err
}

package report

import (
	"errors"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// RenderConvergence 画出每一代历史最优惩罚值的折线图
func RenderConvergence(w io.Writer, title string, history []float64) error {
	if len(history) == 0 {
		return errors.New("没有可以绘制的迭代记录")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "penalty",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
	)

	generations := make([]int, len(history))
	points := make([]opts.LineData, len(history))
	for i, penalty := range history {
		generations[i] = i + 1
		points[i] = opts.LineData{Value: penalty}
	}

	line.SetXAxis(generations).AddSeries("best penalty", points)

	return line.Render(w)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/report"
)

type options struct {
	shelvesPath  string
	productsPath string
	outPath      string
	chartPath    string
	affinity     []string
	seed         int64
	verbose      bool
	parameters   optimizer.Parameters
}

func newRootCommand() *cobra.Command {
	o := &options{parameters: optimizer.DefaultParameters()}

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "用遗传算法为商品分配货架",
		Long: "读取货架和商品的 CSV 文件，运行遗传算法搜索惩罚值最小的分配方案，\n" +
			"在终端输出最优解并保存为 xlsx。",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.shelvesPath, "shelves", "shelves.csv", "货架 CSV 文件")
	flags.StringVar(&o.productsPath, "products", "products.csv", "商品 CSV 文件")
	flags.StringVar(&o.outPath, "out", "optimized_shelf_allocation.xlsx", "输出的 xlsx 文件")
	flags.StringVar(&o.chartPath, "chart", "", "收敛曲线 HTML 文件，为空时不输出")
	flags.Int32Var(&o.parameters.PopulationSize, "population", o.parameters.PopulationSize, "种群大小")
	flags.Int32Var(&o.parameters.Generations, "generations", o.parameters.Generations, "迭代代数")
	flags.Float64Var(&o.parameters.MutationRate, "mutation-rate", o.parameters.MutationRate, "每个基因的变异概率")
	flags.StringSliceVar(&o.affinity, "affinity", []string{"P5:P6"}, "关联商品对，格式为 first:second")
	flags.Int64Var(&o.seed, "seed", 0, "随机数种子，为 0 时使用当前时间")
	flags.IntVar(&o.parameters.Concurrency, "concurrency", 1, "并行计算适应度的 goroutine 数量")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "输出每一代的最优惩罚值")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, o *options) error {
	c, err := catalog.LoadFiles(o.shelvesPath, o.productsPath)
	if err != nil {
		return err
	}

	pairs, err := config.ParseAffinityPairs(o.affinity)
	if err != nil {
		return err
	}

	params := o.parameters
	params.AffinityPairs = pairs
	params.Seed = o.seed
	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}

	opt, err := optimizer.New(params, c, nil)
	if err != nil {
		return err
	}

	slog.Info("开始优化", "shelves", c.ShelfCount(), "products", c.ProductCount(), "seed", params.Seed)
	start := time.Now()

	result, err := opt.Optimize(ctx, func(gen int32, bestPenalty float64) {
		if o.verbose {
			slog.Info("迭代", "generation", gen, "bestPenalty", bestPenalty)
		}
	})
	if err != nil {
		return err
	}
	slog.Info("优化完成", "duration", time.Since(start))

	breakdown, err := opt.Evaluator().Breakdown(result.Assignment)
	if err != nil {
		return err
	}

	rows, err := report.BuildRows(c, result.Assignment)
	if err != nil {
		return err
	}

	if err := report.PrintSolution(cmd.OutOrStdout(), rows, result.Penalty); err != nil {
		return err
	}

	summary := report.Summary{
		Penalty:     result.Penalty,
		Breakdown:   breakdown,
		Generations: result.Generations,
	}
	if err := report.SaveExcel(o.outPath, rows, summary); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Optimized shelf allocation saved to %s\n", o.outPath)

	if o.chartPath != "" {
		f, err := os.Create(o.chartPath)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := report.RenderConvergence(f, "shelf allocation convergence", result.History); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/seed"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/utils"
)

func main() {
	var (
		shelvesPath    string
		productsPath   string
		randomShelves  int
		randomProducts int
		randomSeed     int64
		hashPassword   string
	)

	flag.StringVar(&shelvesPath, "shelves", "", "货架 CSV 文件路径")
	flag.StringVar(&productsPath, "products", "", "商品 CSV 文件路径")
	flag.IntVar(&randomShelves, "random-shelves", 0, "随机生成的货架数量")
	flag.IntVar(&randomProducts, "random-products", 0, "随机生成的商品数量")
	flag.Int64Var(&randomSeed, "seed", 0, "随机数种子，为 0 时使用当前时间")
	flag.StringVar(&hashPassword, "hash-password", "", "输出该密码的 bcrypt 哈希后退出，用于设置 ADMIN_PASSWORD_HASH")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if hashPassword != "" {
		hash, err := utils.HashPassword(hashPassword)
		if err != nil {
			logger.Error("无法生成密码哈希", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := repository.Open(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	switch {
	case shelvesPath != "" && productsPath != "":
		if _, err := seed.FromFiles(repo, shelvesPath, productsPath); err != nil {
			logger.Error("无法导入目录", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case randomShelves > 0 && randomProducts > 0:
		if randomSeed == 0 {
			randomSeed = time.Now().UnixNano()
		}
		if _, err := seed.Random(repo, rand.New(rand.NewSource(randomSeed)), randomShelves, randomProducts); err != nil {
			logger.Error("无法插入随机目录", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		logger.Error("请同时指定 -shelves 和 -products，或者同时指定 -random-shelves 和 -random-products")
		os.Exit(1)
	}
}

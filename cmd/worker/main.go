package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/progress"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/worker"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := repository.Open(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	progressStore := progress.NewStore(rdb, time.Duration(cfg.Redis.ProgressExpiration)*time.Second)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 一次只取一个任务，遗传算法本身已经占满 CPU
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	q, err := ch.QueueDeclare(cfg.RabbitMQ.OptimizationQueue, true, false, false, false, nil)
	if err != nil {
		logger.Error("无法声明队列", slog.String("queue", cfg.RabbitMQ.OptimizationQueue), slog.String("error", err.Error()))
		return
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQ.EmailQueue, true, false, false, false, nil); err != nil {
		logger.Error("无法声明队列", slog.String("queue", cfg.RabbitMQ.EmailQueue), slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 启动指标服务器
	 **********************************************/
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("正在启动指标服务器...", "port", cfg.Metrics.Port)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动指标服务器", slog.String("error", err.Error()))
		}
	}()

	/**********************************************
	 * 创建 worker
	 **********************************************/
	notifier := worker.NewQueueNotifier(ch, cfg.RabbitMQ.EmailQueue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	w := worker.New(repo, progressStore, notifier, m, worker.Options{
		Concurrency:      cfg.Optimizer.Concurrency,
		ProgressInterval: cfg.Optimizer.ProgressInterval,
		ProgressTimeout:  time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				handleMessage(ctx, w, msg)
			}
		}
	}()

	logger.Info("等待优化任务...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 optimization worker...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭指标服务器失败", slog.String("error", err.Error()))
	}
	slog.Info("optimization worker 已成功关闭")
}

func handleMessage(ctx context.Context, w *worker.Worker, msg amqp.Delivery) {
	message := domain.OptimizationMessage{}
	if err := json.Unmarshal(msg.Body, &message); err != nil || message.RunID <= 0 {
		slog.Error("优化任务反序列化失败", slog.String("body", string(msg.Body)))
		_ = msg.Nack(false, false)
		return
	}

	slog.Info("收到优化任务", slog.Int64("runID", message.RunID))

	err := w.Process(ctx, message.RunID)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, worker.ErrRunNotPending):
		// 重复投递的消息
		slog.Warn("优化任务已被处理，忽略", slog.Int64("runID", message.RunID))
		_ = msg.Ack(false)
	case errors.Is(err, worker.ErrRunNotFound):
		slog.Error("优化任务不存在", slog.Int64("runID", message.RunID))
		_ = msg.Nack(false, false)
	case errors.Is(err, context.Canceled):
		// 任务已放回待处理状态，重新入队后由其它 worker 继续
		slog.Warn("优化任务被中断，重新入队", slog.Int64("runID", message.RunID))
		_ = msg.Nack(false, true)
	default:
		slog.Error("优化任务执行失败", slog.Int64("runID", message.RunID), slog.String("error", err.Error()))
		_ = msg.Nack(false, true) // 将消息重新入队
	}
}

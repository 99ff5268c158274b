package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"adboard/internal/config"
	"adboard/internal/seed"
	"adboard/internal/services"
	"adboard/internal/storage"
)

// 灌入开发数据：读取夹具文件，按用户名/分类名去重后写入用户、分类与广告。
// 用法：go run ./cmd/seed -file fixtures.yaml [-dry-run] [-confirm]
func main() {
	file := flag.String("file", "fixtures.yaml", "fixtures file (.yaml/.yml/.json)")
	dryRun := flag.Bool("dry-run", false, "validate fixtures and report, do not write")
	confirm := flag.Bool("confirm", false, "skip interactive confirmation prompt")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	fx, err := seed.Load(*file)
	if err != nil {
		log.WithError(err).Fatal("load fixtures")
	}
	cfg := config.Load()
	if cfg.Env == "prod" && !*dryRun && !*confirm {
		fmt.Printf("About to seed %d users, %d categories, %d ads into %s. Continue? [y/N]: ",
			len(fx.Users), len(fx.Categories), len(fx.Ads), cfg.MySQL.DSNMasked())
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if ans := strings.ToLower(strings.TrimSpace(line)); ans != "y" && ans != "yes" {
			log.Info("aborted")
			return
		}
	}

	db, err := storage.InitMySQL(cfg)
	if err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	defer storage.CloseMySQL(db)

	s := &seed.Seeder{
		Users:      services.NewUserService(db),
		Categories: services.NewCategoryService(db),
		Ads:        services.NewAdService(db, nil, nil, cfg.Pagination.PageSize),
	}
	rep, err := s.Apply(context.Background(), fx, *dryRun)
	if err != nil {
		log.WithError(err).Fatal("seed")
	}
	log.WithFields(log.Fields{
		"dry_run":            *dryRun,
		"users_created":      rep.UsersCreated,
		"users_skipped":      rep.UsersSkipped,
		"categories_created": rep.CategoriesCreated,
		"categories_skipped": rep.CategoriesSkipped,
		"ads_created":        rep.AdsCreated,
		"ads_skipped":        rep.AdsSkipped,
	}).Info("seed finished")
}

package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/Gracey0201/tampa-bay-water-quality/internal/log"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/notification"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/properties"
	"github.com/Gracey0201/tampa-bay-water-quality/internal/ui"
)

func printBanner() {
	figure1 := figure.NewFigure("Tampa Bay", "isometric1", true)
	figure2 := figure.NewFigure("WQI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func initCLI(cfg *properties.Config) {
	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3) // 3 levels up is often the panic source
			var location string
			if ok {
				fn := runtime.FuncForPC(pc)
				location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
			} else {
				location = "Unknown location"
			}

			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
			fmt.Printf("\033[31mExiting...\033[0m\n")

			stack := debug.Stack()
			errMessage := fmt.Sprintf("Tampa Bay WQI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
			if err := notification.SendErrorNotification(cfg.Notify, errMessage); err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
			os.Exit(1)
		}
	}()
	printBanner()
	ui.ShowMenu(cfg)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		// The configuration has defaults for everything, so a missing .env
		// only matters when overrides were expected.
		fmt.Println("No .env file found, using defaults and environment variables.")
	}

	cfg, err := properties.Load()
	if err != nil {
		fmt.Printf("\033[31mInvalid configuration: %s\033[0m\n", err.Error())
		os.Exit(1)
	}

	if err := log.Init(cfg.Debug); err != nil {
		fmt.Printf("\033[31mFailed to initialize logging: %s\033[0m\n", err.Error())
		os.Exit(1)
	}
	defer log.Sync()

	godal.RegisterAll()

	initCLI(cfg)
}

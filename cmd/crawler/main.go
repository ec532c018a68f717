package main

import (
	"locator-crawler/internal/bootstrap"
)

func main() {
	bootstrap.NewApp().Run()
}

package main

import "sompo-quote-agent/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}

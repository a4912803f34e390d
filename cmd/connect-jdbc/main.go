package main

import "github.com/abroskin/kafka-connect-jdbc/internal/cli"

func main() {
	cli.Execute()
}

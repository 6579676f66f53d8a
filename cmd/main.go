package main

import "github.com/yungbote/enemia-backend/internal/cli"

func main() {
	cli.Execute()
}

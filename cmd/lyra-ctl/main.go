package main

import (
	"fmt"
	"os"
	"strings"

	"lyra/internal/ipc"
)

func main() {
	cmd := "trigger"
	arg := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
		arg = strings.Join(os.Args[2:], " ")
	}

	err := ipc.Send(ipc.ControlMessage{Cmd: cmd, Arg: arg})
	if err != nil {
		fmt.Println("lyra-daemon not running:", err)
		return
	}
}

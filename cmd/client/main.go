package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"

	"github.com/dmatos/relay/internal/client"
	"github.com/dmatos/relay/pkg/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6924", "relay server address")
	saveDir := flag.String("save-dir", ".", "directory for received files")
	flag.Parse()

	c := client.NewStream(*addr)
	if err := c.Connect(); err != nil {
		color.Red.Println("Error connecting to the server:", err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Println("Connected to the server.")

	go renderLoop(c, *saveDir)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := scanner.Text()

		if strings.HasPrefix(input, "/file") {
			parts := strings.SplitN(input, " ", 3)
			if len(parts) < 3 {
				color.Yellow.Println("Usage: /file <username> <file>")
				continue
			}
			// The file is read before anything touches the wire, so a
			// missing file never produces a dangling transfer.
			if err := c.SendFile(parts[1], parts[2]); err != nil {
				color.Red.Println("File not found:", parts[2])
			}
			continue
		}

		if err := c.SendCommand(input); err != nil {
			color.Red.Println("Error sending command:", err)
			return
		}
		if input == "/quit" {
			return
		}
	}
}

func renderLoop(c *client.StreamClient, saveDir string) {
	for msg := range c.Incoming() {
		switch msg.Type {
		case protocol.MessageTypeText:
			if strings.HasPrefix(msg.Content, "FILE INCOMING") {
				color.Cyan.Println(msg.Content)
			} else {
				fmt.Println(msg.Content)
			}
		case protocol.MessageTypeFile:
			path, err := client.SaveIncoming(saveDir, msg.Sender, msg.Filename, msg.Body)
			if err != nil {
				color.Red.Println("Error receiving file:", err)
				continue
			}
			color.Green.Println("File received and saved as:", path)
		}
	}
}

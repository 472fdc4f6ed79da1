// ch432ctl exercises a CH432 dual-UART bridge over a Linux spidev device:
// register dumps, self tests, one-shot sends, and an interactive console.
package main

func main() {
	Execute()
}

package ch432

// CH432 register file. One 16550-style register set per UART, addressed as
// (reg + channel*8) << 2 on the SPI command byte. DLL/DLH alias RHR/IER
// while the LCR divisor-latch-access bit is set.

const (
	regRHR = 0x00 // RX FIFO
	regTHR = 0x00 // TX FIFO
	regIER = 0x01 // interrupt enable
	regIIR = 0x02 // interrupt identification
	regFCR = 0x02 // FIFO control
	regLCR = 0x03 // line control
	regMCR = 0x04 // modem control
	regLSR = 0x05 // line status
	regMSR = 0x06 // modem status
	regSPR = 0x07 // scratch pad

	// Special register set, LCR[7] == 1 only.
	regDLL = 0x00 // divisor latch low
	regDLH = 0x01 // divisor latch high
)

// IER bits.
const (
	ierRDI  = 1 << 0 // RX data interrupt
	ierTHRI = 1 << 1 // TX holding register interrupt
	ierRLSI = 1 << 2 // RX line status interrupt
	ierMSI  = 1 << 3 // modem status interrupt

	// Enhanced IER bits.
	ierCK2X     = 1 << 5 // clock x2 (shares bit 5 with sleep)
	ierSleep    = 1 << 5 // sleep mode
	ierLowPower = 1 << 6 // low power mode
	ierReset    = 1 << 7 // soft reset
)

// FCR bits.
const (
	fcrFIFOEn  = 1 << 0 // enable FIFOs
	fcrRXReset = 1 << 1 // reset RX FIFO
	fcrTXReset = 1 << 2 // reset TX FIFO
	fcrRXLvlL  = 1 << 6 // RX trigger level LSB
	fcrRXLvlH  = 1 << 7 // RX trigger level MSB
)

// IIR bits and source codes.
const (
	iirNoInt  = 1 << 0 // no interrupts pending
	iirIDMask = 0x0e   // interrupt source field

	srcTHRI = 0x02 // TX holding register empty
	srcRDI  = 0x04 // RX data available
	srcRLS  = 0x06 // RX line status error
	srcRTO  = 0x0c // RX timeout
	srcMSI  = 0x00 // modem status change
)

// LCR bits. Word length: 00=5, 01=6, 10=7, 11=8.
const (
	lcrWordLen5 = 0x00
	lcrWordLen6 = 0x01
	lcrWordLen7 = 0x02
	lcrWordLen8 = 0x03

	lcrStop2 = 1 << 2 // 2 stop bits (1.5 with 5-bit words)

	lcrParityEn    = 1 << 3
	lcrParityOdd   = 0
	lcrParityEven  = 1 << 4
	lcrParityMark  = 1 << 5
	lcrParitySpace = 3 << 4

	lcrTxBreak = 1 << 6
	lcrDLAB    = 1 << 7 // divisor latch access

	lcrConfModeA = lcrDLAB
)

// MCR bits.
const (
	mcrDTR  = 1 << 0
	mcrRTS  = 1 << 1
	mcrOUT1 = 1 << 2
	mcrOUT2 = 1 << 3 // gates the chip's interrupt output
	mcrLoop = 1 << 4 // loopback test mode
	mcrAFE  = 1 << 5 // hardware auto flow control
)

// LSR bits.
const (
	lsrDR       = 1 << 0 // receiver data ready
	lsrOE       = 1 << 1 // overrun error
	lsrPE       = 1 << 2 // parity error
	lsrFE       = 1 << 3 // frame error
	lsrBI       = 1 << 4 // break interrupt
	lsrTHRE     = 1 << 5 // TX holding register empty
	lsrTEMT     = 1 << 6 // transmitter empty
	lsrFIFOErr  = 1 << 7 // at least one error byte in the RX FIFO
	lsrBrkError = lsrOE | lsrPE | lsrFE | lsrBI
)

// MSR bits.
const (
	msrDCTS = 1 << 0 // delta CTS
	msrDDSR = 1 << 1 // delta DSR
	msrDRI  = 1 << 2 // delta RI
	msrDCD  = 1 << 3 // delta CD
	msrCTS  = 1 << 4
	msrDSR  = 1 << 5
	msrRI   = 1 << 6
	msrCD   = 1 << 7

	msrDeltaMask = 0x0f
)

const (
	// FIFOSize is the hardware FIFO depth per direction, per channel.
	FIFOSize = 16

	regShift = 2
)

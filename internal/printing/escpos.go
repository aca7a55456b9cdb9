package printing

import "bytes"

const (
	esc = 0x1B
	gs  = 0x1D
)

// EncodeESCPOS renders job as an ESC/POS byte stream for 58/80mm thermal
// printers, ending with a paper feed and a full cut.
func EncodeESCPOS(layout Layout, job Job) []byte {
	var buf bytes.Buffer

	buf.Write([]byte{esc, '@'})
	buf.Write([]byte{esc, 'a', 1})

	buf.Write([]byte{gs, '!', 0x11})
	buf.WriteString(layout.Header + "\n")
	buf.Write([]byte{gs, '!', 0x00})
	if layout.Subheader != "" {
		buf.WriteString(layout.Subheader + "\n")
	}
	buf.WriteString("Nomor Antrian\n\n")

	buf.Write([]byte{gs, '!', 0x22})
	buf.WriteString(job.QueueCode + "\n\n")
	buf.Write([]byte{gs, '!', 0x00})

	buf.Write([]byte{esc, 'a', 0})
	buf.WriteString("Loket: " + job.CounterID + "\n")
	buf.WriteString("Jenis: " + job.Category + "\n")
	buf.WriteString("Waktu: " + job.IssuedAt + "\n\n")

	buf.Write([]byte{esc, 'a', 1})
	buf.WriteString("Terima Kasih\n")
	buf.WriteString("Harap Menunggu\n\n\n")

	buf.Write([]byte{esc, 'd', 3})
	buf.Write([]byte{gs, 'V', 0})
	return buf.Bytes()
}

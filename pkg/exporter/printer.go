package exporter

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
	"unicode"
	"unicode/utf8"

	"linkchain/pkg/chain"
	"linkchain/pkg/codec"
	"linkchain/pkg/ledger"
)

// 预览 payload 时最多展示的字节数
const previewLimit = 64

// PrintStructure 尝试把数据当作链记录解析并打印
// 不是链记录时返回 false，由调用者决定如何展示
func PrintStructure(data []byte, w io.Writer) (bool, error) {
	var header struct {
		TypeVal string `cbor:"t"`
	}
	if err := codec.Unmarshal(data, &header); err != nil || header.TypeVal != codec.TypeLink {
		return false, nil
	}

	rec, err := codec.Decode(data)
	if err != nil {
		return true, err
	}
	PrintRecord(rec, w)
	return true, nil
}

// PrintRecord 打印单条记录
func PrintRecord(rec *codec.Record, w io.Writer) {
	fmt.Fprintf(w, "Type:     Link\n")
	fmt.Fprintf(w, "Hash:     %s\n", rec.ID())
	fmt.Fprintf(w, "Position: %d\n", rec.Position)
	if prev, ok := rec.PrevHash().Get(); ok {
		fmt.Fprintf(w, "Prev:     %s\n", prev)
	} else {
		fmt.Fprintf(w, "Prev:     (genesis)\n")
	}
	fmt.Fprintf(w, "Size:     %s\n", fmtSize(rec.Size()))
	fmt.Fprintf(w, "\n%s\n", preview(rec.Payload))
}

// PrintLog 以表格形式打印整条链 (从 genesis 到 HEAD)
func PrintLog(entries []ledger.Entry, w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "POS\tHASH\tPREV\tSIZE\tTIME\tMETA\n")
	for _, e := range entries {
		prev := "-"
		if p, ok := e.Prev.Get(); ok {
			prev = p.Short()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Position, e.Hash.Short(), prev, fmtSize(e.Size),
			e.CreatedAt.Local().Format(time.DateTime), fmtMeta(e.Meta))
	}
	tw.Flush()
}

// PrintReport 打印一致性检查结果
func PrintReport(r chain.Report, deep bool, w io.Writer) {
	mode := "shallow"
	if deep {
		mode = "deep"
	}
	if r.Consistent {
		fmt.Fprintf(w, "OK: %d links verified (%s)\n", r.Length, mode)
		return
	}
	fmt.Fprintf(w, "BROKEN: chain breaks at position %d (%s, %d links intact before it)\n", r.BrokenAt, mode, r.Length)
}

// preview 文本原样展示，二进制展示前若干字节的 hex
func preview(payload []byte) string {
	if len(payload) == 0 {
		return "(empty)"
	}
	if isText(payload) {
		if len(payload) > previewLimit {
			cut := previewLimit
			for cut > 0 && !utf8.RuneStart(payload[cut]) {
				cut--
			}
			return string(payload[:cut]) + "..."
		}
		return string(payload)
	}
	n := min(len(payload), previewLimit)
	s := hex.EncodeToString(payload[:n])
	if n < len(payload) {
		s += "..."
	}
	return "(binary) " + s
}

func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}

func fmtMeta(m map[string]any) string {
	if src, ok := m["source"]; ok {
		return fmt.Sprint(src)
	}
	if len(m) == 0 {
		return ""
	}
	return fmt.Sprintf("%d keys", len(m))
}

func fmtSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}

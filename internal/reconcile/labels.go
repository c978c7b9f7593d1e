package reconcile

import "strconv"

// Label renders index as a spreadsheet-style coordinate: column letters
// then 1-based row, so index 7 on a 5-wide grid is "C2".
func Label(index, width uint64) string {
	if width == 0 {
		return strconv.FormatUint(index, 10)
	}
	col := index % width
	row := index / width
	return columnName(col) + strconv.FormatUint(row+1, 10)
}

func columnName(col uint64) string {
	var buf []byte
	n := col + 1
	for n > 0 {
		n--
		buf = append([]byte{byte('A' + n%26)}, buf...)
		n /= 26
	}
	return string(buf)
}

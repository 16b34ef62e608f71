package amber

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// parseFinalEnergy extracts the total energy from the FINAL RESULTS block of
// a sander/pmemd minimization output:
//
//	                    FINAL RESULTS
//
//	   NSTEP       ENERGY          RMS            GMAX         NAME    NUMBER
//	    500      -1.2345E+03     1.0000E-01     2.0000E+00     CA        12
func parseFinalEnergy(mdout string) (float64, bool) {
	idx := strings.LastIndex(mdout, "FINAL RESULTS")
	if idx < 0 {
		return 0, false
	}
	sc := bufio.NewScanner(strings.NewReader(mdout[idx:]))
	header := false
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if !header {
			header = fields[0] == "NSTEP"
			continue
		}
		if len(fields) < 2 {
			return 0, false
		}
		energy, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, false
		}
		return energy, true
	}
	return 0, false
}

// prmtopCounts reads NATOM and NRES from the %FLAG POINTERS block of an
// AMBER topology file. POINTERS is written as 10I8: fixed 8-column integers.
func prmtopCounts(path string) (atoms, residues int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	pointers, err := readIntFlag(data, "POINTERS", 12)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", path, err)
	}
	// NATOM is the first pointer, NRES the twelfth.
	return pointers[0], pointers[11], nil
}

func readIntFlag(data []byte, flag string, want int) ([]int, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	inFlag := false
	var values []int
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "%FLAG") {
			if inFlag {
				break
			}
			inFlag = strings.TrimSpace(strings.TrimPrefix(line, "%FLAG")) == flag
			continue
		}
		if !inFlag || strings.HasPrefix(line, "%") {
			continue
		}
		for start := 0; start < len(line); start += 8 {
			end := start + 8
			if end > len(line) {
				end = len(line)
			}
			field := strings.TrimSpace(line[start:end])
			if field == "" {
				continue
			}
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("%%FLAG %s: %w", flag, err)
			}
			values = append(values, v)
		}
		if len(values) >= want {
			return values, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !inFlag {
		return nil, fmt.Errorf("%%FLAG %s not found", flag)
	}
	if len(values) < want {
		return nil, fmt.Errorf("%%FLAG %s has %d values, want at least %d", flag, len(values), want)
	}
	return values, nil
}

package neobase

import (
	"os"
	"strings"
	"testing"
	"time"
)

const porColumns = 51

// sampleDataFile is a small extract of the upstream dataset, in refresh order.
const sampleDataFile = "testdata/optd_por_sample.csv"

const testHeader = "iata_code^icao_code^faa_code^is_geonames^geoname_id^envelope_id^name^asciiname^" +
	"latitude^longitude^fclass^fcode^page_rank^date_from^date_until^comment^country_code^cc2^" +
	"country_name^continent_name^adm1_code^adm1_name_utf^adm1_name_ascii^adm2_code^adm2_name_utf^" +
	"adm2_name_ascii^adm3_code^adm4_code^population^elevation^gtopo30^timezone^gmt_offset^" +
	"dst_offset^raw_offset^moddate^city_code_list^city_name_list^city_detail_list^tvl_por_list^" +
	"iso31662^location_type^wiki_link^alt_name_section^wac^wac_name^ccy_code^unlc_list^uic_list^" +
	"geoname_lat^geoname_lon"

// porRow builds one dataset line column by column.
type porRow map[int]string

func newRow(key, name, lat, lng string) porRow {
	return porRow{
		colIATACode:     key,
		colName:         name,
		colLatitude:     lat,
		colLongitude:    lng,
		colCountryCode:  "FR",
		colCityCodeList: key,
		colCityNameList: name,
		colLocationType: "A",
	}
}

func (r porRow) with(col int, v string) porRow {
	out := make(porRow, len(r)+1)
	for k, val := range r {
		out[k] = val
	}
	out[col] = v
	return out
}

func (r porRow) line() string {
	cols := make([]string, porColumns)
	for i, v := range r {
		cols[i] = v
	}
	return strings.Join(cols, "^")
}

// clearEnv unsets the OPTD_POR_* variables for the duration of the test.
func clearEnv(t testing.TB) {
	t.Helper()
	for _, k := range []string{EnvFile, EnvDate, EnvDuplicates} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// dataset joins a header and the given lines.
func dataset(lines ...string) string {
	return testHeader + "\n" + strings.Join(lines, "\n") + "\n"
}

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	rowORY = newRow("ORY", "Paris Orly Airport", "48.725278", "2.359444").
		with(colCityCodeList, "PAR").with(colCityNameList, "Paris").with(colPageRank, "0.3876")
	rowCDG = newRow("CDG", "Paris Charles de Gaulle Airport", "49.012779", "2.55").
		with(colCityCodeList, "PAR").with(colCityNameList, "Paris")
	rowNCEAirport = newRow("NCE", "Nice Côte d'Azur International Airport", "43.66272", "7.20787")
	rowNCECity    = newRow("NCE", "Nice", "43.70313", "7.26608").with(colLocationType, "C")
)

package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// LoadReferenceData reads the route & stop tables out of a GTFS dataset. The
// path may point at a GTFS zip or at a directory containing the extracted
// txt files. Only the tables the detection rules consult are loaded
func LoadReferenceData(path string) (*transit.ReferenceData, error) {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	var routes []transit.Route
	var stops []transit.Stop

	fileMap := map[string]interface{}{
		"routes.txt": &routes,
		"stops.txt":  &stops,
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		err = loadFromDirectory(path, fileMap)
	} else {
		err = loadFromZip(path, fileMap)
	}
	if err != nil {
		return nil, err
	}

	reference := transit.NewReferenceData()
	for i := range routes {
		route := routes[i]
		reference.Routes[route.RouteID] = &route
	}
	for i := range stops {
		stop := stops[i]
		reference.Stops[stop.StopID] = &stop
	}

	log.Info().
		Int("routes", len(reference.Routes)).
		Int("stops", len(reference.Stops)).
		Msg("Loaded GTFS reference data")

	return reference, nil
}

func loadFromZip(path string, fileMap map[string]interface{}) error {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, zipFile := range archive.File {
		destination, exists := fileMap[zipFile.Name]
		if !exists {
			continue
		}

		log.Info().Str("file", zipFile.Name).Msg("Loading file")

		fileReader, err := zipFile.Open()
		if err != nil {
			return err
		}

		err = gocsv.Unmarshal(fileReader, destination)
		fileReader.Close()
		if err != nil {
			log.Fatal().Str("file", zipFile.Name).Err(err).Msg("Failed to parse csv file")
		}
	}

	return nil
}

func loadFromDirectory(path string, fileMap map[string]interface{}) error {
	for fileName, destination := range fileMap {
		filePath := filepath.Join(path, fileName)

		file, err := os.Open(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				log.Debug().Str("file", fileName).Msg("GTFS file missing, skipping")
				continue
			}
			return err
		}

		log.Info().Str("file", fileName).Msg("Loading file")

		err = gocsv.Unmarshal(file, destination)
		file.Close()
		if err != nil {
			log.Fatal().Str("file", fileName).Err(err).Msg("Failed to parse csv file")
		}
	}

	return nil
}

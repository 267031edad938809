package sources

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/9seconds/geocidr/geolib"
	"github.com/spf13/afero"
)

const (
	maxmindCSVEditionID   = "GeoLite2-City-CSV"
	maxmindCSVArchiveName = "archive.zip"
	maxmindCSVBaseURL     = "https://download.maxmind.com/app/geoip_download"
)

var maxmindChecksumRegexp = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

type maxmindCSVSource struct {
	fsDir

	licenseKey string
	locale     string
	baseURL    string
	httpClient geolib.HTTPClient
	logger     geolib.Logger
}

func (m *maxmindCSVSource) Name() string {
	return NameMaxmindCSV
}

func (m *maxmindCSVSource) Load(ctx context.Context) (*geolib.Dataset, error) {
	targetDir, err := m.download(ctx)
	if err != nil {
		currentDir, currentErr := m.GetTargetDir()
		if currentErr != nil || currentDir == "" {
			return nil, fmt.Errorf("cannot download a dataset: %w", err)
		}

		m.logger.BuildWarning(m.Name(),
			fmt.Errorf("use previous dataset %s: %w", currentDir, err))

		targetDir = currentDir
	}

	if err := m.Cleanup(targetDir); err != nil {
		m.logger.BuildWarning(m.Name(), fmt.Errorf("cannot cleanup base directory: %w", err))
	}

	source := NewCSV(m.fs,
		filepath.Join(targetDir, csvDefaultBlocksFileName),
		filepath.Join(targetDir, m.locationsFileName()),
		m.logger)

	return source.Load(ctx)
}

func (m *maxmindCSVSource) download(ctx context.Context) (string, error) {
	tmpDir, err := m.TempDir()
	if err != nil {
		return "", fmt.Errorf("cannot create a temporary directory: %w", err)
	}

	defer m.fs.RemoveAll(tmpDir) // nolint: errcheck

	expectedChecksum, err := m.downloadChecksum(ctx)
	if err != nil {
		return "", fmt.Errorf("cannot download a checksum: %w", err)
	}

	archivePath := filepath.Join(tmpDir, maxmindCSVArchiveName)

	actualChecksum, err := m.downloadArchive(ctx, archivePath)
	if err != nil {
		return "", fmt.Errorf("cannot download an archive: %w", err)
	}

	if !strings.EqualFold(expectedChecksum, actualChecksum) {
		return "", fmt.Errorf("%w: expected=%s, actual=%s",
			ErrChecksumMismatch,
			expectedChecksum,
			actualChecksum)
	}

	if err := m.extractArchive(archivePath, tmpDir); err != nil {
		return "", fmt.Errorf("cannot extract an archive: %w", err)
	}

	if err := m.fs.Remove(archivePath); err != nil {
		return "", fmt.Errorf("cannot remove an archive: %w", err)
	}

	targetDir, _, err := m.Promote(tmpDir)
	if err != nil {
		return "", fmt.Errorf("cannot promote a directory: %w", err)
	}

	return targetDir, nil
}

func (m *maxmindCSVSource) downloadChecksum(ctx context.Context) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, m.buildURL("zip.sha256"), nil)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot fetch checksum page: %w", err)
	}

	defer flushResponse(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot read body of the response: %w", err)
	}

	fields := bytes.Fields(data)
	if len(fields) == 0 || !maxmindChecksumRegexp.Match(fields[0]) {
		return "", fmt.Errorf("incorrect checksum format: %q", data)
	}

	return string(fields[0]), nil
}

func (m *maxmindCSVSource) downloadArchive(ctx context.Context, archivePath string) (string, error) {
	fp, err := m.fs.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("cannot create an archive file: %w", err)
	}

	defer fp.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, m.buildURL("zip"), nil)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot fetch an archive: %w", err)
	}

	defer flushResponse(resp.Body)

	checksum, err := hashedCopy(sha256.New, fp, resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot copy an archive into fs: %w", err)
	}

	return checksum, nil
}

func (m *maxmindCSVSource) extractArchive(archivePath, dir string) error {
	fp, err := m.fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open an archive: %w", err)
	}

	defer fp.Close()

	stat, err := fp.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat an archive: %w", err)
	}

	zipReader, err := zip.NewReader(fp, stat.Size())
	if err != nil {
		return fmt.Errorf("cannot read zip archive: %w", err)
	}

	expected := map[string]string{
		"-Blocks-IPv4.csv":                csvDefaultBlocksFileName,
		"-Locations-" + m.locale + ".csv": m.locationsFileName(),
	}

	for _, file := range zipReader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		for suffix, name := range expected {
			if strings.HasSuffix(path.Base(file.Name), suffix) {
				if err := m.extractFile(file, filepath.Join(dir, name)); err != nil {
					return err
				}

				delete(expected, suffix)
			}
		}
	}

	for suffix := range expected {
		return fmt.Errorf("%w: *%s", ErrNoFile, suffix)
	}

	return nil
}

func (m *maxmindCSVSource) extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("cannot open %s in archive: %w", file.Name, err)
	}

	defer src.Close()

	dst, err := m.fs.Create(target)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", target, err)
	}

	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("cannot extract %s: %w", file.Name, err)
	}

	return nil
}

func (m *maxmindCSVSource) locationsFileName() string {
	return "GeoLite2-City-Locations-" + m.locale + ".csv"
}

func (m *maxmindCSVSource) buildURL(suffix string) string {
	queryValues := url.Values{}

	queryValues.Set("edition_id", maxmindCSVEditionID)
	queryValues.Set("suffix", suffix)
	queryValues.Set("license_key", m.licenseKey)

	return m.baseURL + "?" + queryValues.Encode()
}

// NewMaxmindCSV returns a new source which downloads GeoLite2 City CSV
// archives from MaxMind.
//
//	Identifier: maxmind_csv
//	Website: https://dev.maxmind.com/geoip/geolite2-free-geolocation-data
//
// Archives are verified by their published SHA256 checksums and
// extracted into baseDirectory. If download fails but some dataset
// was downloaded before, a previous dataset is used.
//
// A license key is required.
func NewMaxmindCSV(fs afero.Fs,
	httpClient geolib.HTTPClient,
	baseDirectory string,
	licenseKey string,
	locale string,
	logger geolib.Logger) (geolib.Source, error) {
	if licenseKey == "" {
		return nil, ErrLicenseKeyIsRequired
	}

	if locale == "" {
		locale = mmdbDefaultLocale
	}

	return &maxmindCSVSource{
		fsDir: fsDir{
			fs:  fs,
			dir: filepath.Clean(baseDirectory),
		},
		licenseKey: licenseKey,
		locale:     locale,
		baseURL:    maxmindCSVBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

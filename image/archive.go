package image

import (
	"archive/tar"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dendrascience/rootimg/objstore"
	"github.com/zeebo/blake3"
)

// DigestSuffix is appended to the archive path to name its digest file.
const DigestSuffix = ".b3"

// ArchiveStats describes a written archive.
type ArchiveStats struct {
	Members int
	Bytes   int64
	Digest  string
}

// WriteArchive packs every non-scratch regular file at the top of storeDir into a
// tar archive at dst. Members are written in name order with fixed ownership, mode
// and timestamps, so identical stores produce identical archives. The BLAKE3 digest
// of the archive is written next to it in b3sum format.
func WriteArchive(storeDir, dst string) (ArchiveStats, error) {
	var stats ArchiveStats
	dirents, err := os.ReadDir(storeDir)
	if err != nil {
		return stats, fmt.Errorf("reading object store %s: %w", storeDir, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), objstore.ScratchPrefix+"tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return stats, err
	}
	defer os.Remove(tmp.Name())

	h := blake3.New()
	tw := tar.NewWriter(io.MultiWriter(tmp, h))
	// os.ReadDir sorts by name.
	for _, d := range dirents {
		if objstore.IsScratch(d.Name()) || !d.Type().IsRegular() {
			continue
		}
		n, err := addMember(tw, filepath.Join(storeDir, d.Name()), d.Name())
		if err != nil {
			tmp.Close()
			return stats, err
		}
		stats.Members++
		stats.Bytes += n
	}
	if err := tw.Close(); err != nil {
		tmp.Close()
		return stats, fmt.Errorf("finishing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return stats, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return stats, err
	}
	stats.Digest = hex.EncodeToString(h.Sum(nil))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return stats, err
	}
	line := stats.Digest + "  " + filepath.Base(dst) + "\n"
	if err := writeAtomic(dst+DigestSuffix, []byte(line)); err != nil {
		return stats, fmt.Errorf("writing archive digest: %w", err)
	}
	return stats, nil
}

func addMember(tw *tar.Writer, src, name string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening %s for archiving: %w", src, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     0o644,
		ModTime:  time.Unix(0, 0),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, fmt.Errorf("writing header for %s: %w", name, err)
	}
	n, err := io.Copy(tw, f)
	if err != nil {
		return n, fmt.Errorf("archiving %s: %w", name, err)
	}
	return n, nil
}

// ArchiveMembers lists the member names of the tar archive at path, in order.
func ArchiveMembers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var names []string
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive %s: %w", path, err)
		}
		names = append(names, hdr.Name)
	}
}

// ArchiveDigest returns the BLAKE3 digest of the file at path in hex.
func ArchiveDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadDigestFile returns the digest recorded in a b3sum-format file.
func ReadDigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty digest file %s", path)
	}
	return fields[0], nil
}

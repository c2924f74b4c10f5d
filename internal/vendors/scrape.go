package vendors

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/joshuapare/artifactkit/internal/deviceid"
)

var idRE = regexp.MustCompile(`(idVendor\s+(?P<vid>\w+)\s(?P<vname>(?:\S+\s)*)\s+(idProduct\s+(?P<pid>\w+)\s(?P<pname>(?:\S+\s)*)))+`)

// Scrape builds a list from the text files below dir. Each file holds blocks
// of the form
//
//	idVendor 0x046d Logitech, Inc.
//
//	idProduct 0xc52b Unifying Receiver
//
// README.md files are skipped.
func Scrape(fs afero.Fs, dir string) (List, error) {
	list := List{}
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(path) == "README.md" {
			return nil
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		return scrapeText(list, string(data))
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func scrapeText(list List, text string) error {
	vidIdx := idRE.SubexpIndex("vid")
	vnameIdx := idRE.SubexpIndex("vname")
	pidIdx := idRE.SubexpIndex("pid")
	pnameIdx := idRE.SubexpIndex("pname")

	for _, m := range idRE.FindAllStringSubmatch(text, -1) {
		vid, err := deviceid.ParseHex16(m[vidIdx])
		if err != nil {
			return fmt.Errorf("vendor id %q: %w", m[vidIdx], err)
		}
		pid, err := deviceid.ParseHex16(m[pidIdx])
		if err != nil {
			return fmt.Errorf("product id %q: %w", m[pidIdx], err)
		}
		list.add(vid, strings.TrimSpace(m[vnameIdx]), pid, strings.TrimSpace(m[pnameIdx]))
	}
	return nil
}

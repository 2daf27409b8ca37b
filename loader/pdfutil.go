package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func (l *Loader) validateAndCrop(in, out string) error {
	conf := api.LoadConfiguration()

	if err := api.ValidateFile(in, conf); err != nil {
		return fmt.Errorf("invalid PDF: %w", err)
	}
	if l.cropTop == 0 && l.cropBottom == 0 {
		return copyFile(in, out)
	}
	return removeHeaderFooterCrop(in, out, l.cropTop, l.cropBottom, conf)
}

// removeHeaderFooterCrop cuts top and bottom points (1 pt = 1/72 inch) off
// every page.
func removeHeaderFooterCrop(in, out string, top, bottom float64, conf *model.Configuration) error {
	pages := []string{"1-"}

	cropStr := fmt.Sprintf(
		"%.2f 0 %.2f 0",
		top,
		bottom,
	)

	box, err := model.ParseBox(cropStr, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse crop box: %w", err)
	}

	if err := api.CropFile(in, out, pages, box, conf); err != nil {
		return fmt.Errorf("failed to crop PDF: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

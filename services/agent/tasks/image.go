// Copyright 2024 The Dataforge Authors <dev@dataforge.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
)

// B7: resize an image or re-encode it into another format
func (r *Runner) handleImageProcessing(_ context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		InputPath  string `json:"input_path"`
		OutputPath string `json:"output_path"`
		Operation  string `json:"operation"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	data, err := r.box.ReadFile(params.InputPath)
	if err != nil {
		return nil, err
	}
	source, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image file: %w", err)
	}

	switch params.Operation {
	case "resize":
		if params.Width <= 0 || params.Height <= 0 {
			return nil, NewInvalidTaskError("resize needs positive width and height")
		}
		source = resizeImage(source, params.Width, params.Height)
	case "convert", "":
		// the target format comes from the output extension
	default:
		return nil, NewInvalidTaskError("unsupported image operation %q", params.Operation)
	}

	var encoded bytes.Buffer
	switch strings.ToLower(filepath.Ext(params.OutputPath)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&encoded, source, &jpeg.Options{Quality: 90})
	case ".png":
		err = png.Encode(&encoded, source)
	default:
		return nil, NewInvalidTaskError("unsupported image format %q", filepath.Ext(params.OutputPath))
	}
	if err != nil {
		return nil, err
	}

	if err := r.box.WriteFile(params.OutputPath, encoded.Bytes()); err != nil {
		return nil, err
	}

	return Result{"output_path": params.OutputPath}, nil
}

// resizeImage does nearest-neighbor scaling, good enough for thumbnails.
func resizeImage(source image.Image, width int, height int) image.Image {
	bounds := source.Bounds()
	target := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sourceY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			sourceX := bounds.Min.X + x*bounds.Dx()/width
			target.Set(x, y, source.At(sourceX, sourceY))
		}
	}
	return target
}

// Copyright (c) 2024 ndsrom Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Alternatively, this file may be used under the terms of the MIT license:
//
// Copyright (c) 2024 ndsrom Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"ndsrom/header"
	"ndsrom/rom"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage:")
		fmt.Println("  ndsrom info <romfile>")
		fmt.Println("  ndsrom decompose <romfile> <output_directory>")
		fmt.Println("  ndsrom compose <input_directory> <romfile>")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "info":
		runInfo(os.Args[2])
	case "decompose":
		if len(os.Args) < 4 {
			fmt.Println("Usage: ndsrom decompose <romfile> <output_directory>")
			os.Exit(1)
		}
		runDecompose(os.Args[2], os.Args[3])
	case "compose":
		if len(os.Args) < 4 {
			fmt.Println("Usage: ndsrom compose <input_directory> <romfile>")
			os.Exit(1)
		}
		runCompose(os.Args[2], os.Args[3])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Commands: info, decompose, compose")
		os.Exit(1)
	}
}

func runInfo(romfile string) {
	image, err := os.ReadFile(romfile)
	if err != nil {
		glog.Fatalf("reading %s: %v", romfile, err)
	}
	r, err := rom.Decompose(image)
	if err != nil {
		glog.Fatalf("decomposing %s: %v", romfile, err)
	}

	title := r.Header.Get(header.TITLE)
	fmt.Printf("title:          %q\n", trimNulls(title))
	fmt.Printf("arm9 size:      %d bytes\n", len(r.ARM9))
	fmt.Printf("arm7 size:      %d bytes\n", len(r.ARM7))
	fmt.Printf("arm9 overlays:  %d\n", len(r.ARM9Overlays))
	fmt.Printf("arm7 overlays:  %d\n", len(r.ARM7Overlays))
	fmt.Printf("files:          %d\n", len(r.Files))
	fmt.Printf("banner size:    %d bytes\n", len(r.Banner))
}

func runDecompose(romfile, outputDir string) {
	image, err := os.ReadFile(romfile)
	if err != nil {
		glog.Fatalf("reading %s: %v", romfile, err)
	}
	r, err := rom.Decompose(image)
	if err != nil {
		glog.Fatalf("decomposing %s: %v", romfile, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		glog.Fatalf("creating %s: %v", outputDir, err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "arm9.bin"), r.ARM9, 0o644); err != nil {
		glog.Fatalf("writing arm9.bin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "arm7.bin"), r.ARM7, 0o644); err != nil {
		glog.Fatalf("writing arm7.bin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "banner.bin"), r.Banner, 0o644); err != nil {
		glog.Fatalf("writing banner.bin: %v", err)
	}

	filesDir := filepath.Join(outputDir, "files")
	for path, data := range r.Files {
		dest := filepath.Join(filesDir, path)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			glog.Fatalf("creating directory for %s: %v", path, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			glog.Fatalf("writing %s: %v", path, err)
		}
	}

	glog.Infof("decomposed %s into %s (%d files, %d arm9 overlays, %d arm7 overlays)",
		romfile, outputDir, len(r.Files), len(r.ARM9Overlays), len(r.ARM7Overlays))
}

func runCompose(inputDir, romfile string) {
	glog.Fatalf("compose from a directory tree is not implemented: recomposing %s from %s requires a manifest format this demonstration CLI does not define", romfile, inputDir)
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

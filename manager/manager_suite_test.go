/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// manager_suite_test.go initializes the Ginkgo test suite for the manager
// package. The specs run inside the package so the loop mailbox internals
// stay reachable.
package manager

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestManager(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Manager Suite")
}

// newTestManager builds a manager over a fresh unit directory populated
// with the given files. The returned manager is ready for Dispatch; the
// caller closes it.
func newTestManager(files map[string]string) (Manager, string) {
	dir := GinkgoT().TempDir()

	for name, body := range files {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(body), 0644)).To(Succeed())
	}

	state := filepath.Join(GinkgoT().TempDir(), "state")
	Expect(os.MkdirAll(state, 0700)).To(Succeed())

	cfg := Config{
		UnitPaths:     []string{dir},
		StateDir:      state,
		ControlSocket: filepath.Join(GinkgoT().TempDir(), "control.sock"),
	}

	mgr, err := New(cfg, nil)
	Expect(err).ToNot(HaveOccurred())

	return mgr, dir
}

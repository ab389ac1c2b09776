package cuda

import (
	"github.com/kmaehashi/chainer-doctor/internal/dylib"
)

// resolverOpener adapts dylib.Resolver to the Opener interface.
type resolverOpener struct {
	r *dylib.Resolver
}

// NewOpener creates an Opener backed by the system dynamic linker,
// searching the conventional NVIDIA locations plus any extra
// directories.
func NewOpener(extraDirs []string) Opener {
	dirs := append([]string{}, extraDirs...)
	dirs = append(dirs, dylib.DefaultSearchDirs()...)
	return &resolverOpener{r: &dylib.Resolver{Dirs: dirs}}
}

func (o *resolverOpener) Open(name string) (Lib, error) {
	lib, err := o.r.Open(name)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func (o *resolverOpener) OpenPath(path string) (Lib, error) {
	lib, err := o.r.OpenPath(path)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

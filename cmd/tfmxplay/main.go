// tfmxplay is a live playback demo for the tfmx engine. It plays a
// TFMX music-data file plus its sample bank through the default audio
// device and renders a scrolling status line of the sequencer position.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"syscall"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/8bitjam/tfmx"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"
)

var (
	flagHz      = flag.Int("hz", 44100, "output sample rate in Hz")
	flagSong    = flag.Int("song", 0, "sub-song index to start")
	flagMulti   = flag.Bool("8voice", false, "enable 8-voice dispatch")
	flagFilter  = flag.Int("filter", 1, "low-pass filter strength, 0-3")
	flagBlend   = flag.Bool("blend", true, "enable the stereo cross-blend")
	flagOversample = flag.Bool("oversample", true, "enable linear interpolation in the mixer")
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("tfmxplay: ")
	flag.Parse()

	if len(flag.Args()) < 2 {
		log.Fatal("usage: tfmxplay <music-data-file> <sample-bank-file>")
	}

	musicBytes, err := ioutil.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	sampleBytes, err := ioutil.ReadFile(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}

	module, err := tfmx.Parse(musicBytes, sampleBytes)
	if err != nil {
		log.Fatal(err)
	}

	engine := tfmx.New(uint(*flagHz))
	engine.Config = tfmx.Config{
		MultiMode:    *flagMulti,
		FilterLevel:  *flagFilter,
		Blend:        *flagBlend,
		Oversampling: *flagOversample,
	}
	engine.Load(module)
	engine.Init()
	if err := engine.StartSong(*flagSong, false); err != nil {
		log.Fatal(err)
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer portaudio.Terminate()

	left := make([]float32, 1024)
	right := make([]float32, 1024)
	out := make([]float32, 0, 2048)

	streamCB := func(buf []float32) {
		want := len(buf) / 2
		if want > len(left) {
			want = len(left)
		}
		n, _ := engine.Render(left[:want], right[:want])
		out = out[:0]
		for i := 0; i < n; i++ {
			out = append(out, left[i], right[i])
		}
		copy(buf, out)
		for i := len(out); i < len(buf); i++ {
			buf[i] = 0
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(*flagHz), portaudio.FramesPerBufferUnspecified, streamCB)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		log.Fatal(err)
	}
	defer stream.Stop()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)

	doneCh := make(chan struct{})
	go func() {
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				return true, nil
			}
			if key.Code == keys.Space {
				engine.Stop()
			}
			return false, nil
		})
		close(doneCh)
	}()

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)

	cyan := color.New(color.FgCyan).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	for _, line := range module.Header.Text {
		_ = line
	}
	fmt.Println(module.Header.TextLine(0))

	for {
		select {
		case <-sigch:
			stream.Stop()
			return
		case <-doneCh:
			stream.Stop()
			return
		default:
		}

		ds := engine.DisplayState()
		fmt.Printf("%s %3d %s %4d\r", cyan("song"), ds.Song, yellow("pos"), ds.Position)
	}
}

// tfmxwav renders a TFMX music-data file plus its sample bank to a WAVE
// file, running the engine as fast as possible rather than in real time.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/8bitjam/tfmx"
	"github.com/8bitjam/tfmx/wav"
)

const outputHz = 44100

func main() {
	log.SetFlags(0)
	log.SetPrefix("tfmxwav: ")

	wavOut := flag.String("wav", "", "output WAVE file path")
	song := flag.Int("song", 0, "sub-song index to render")
	loops := flag.Int("loops", 1, "stop after a loop row has run out of repeats this many times (0 = unlimited)")
	multi := flag.Bool("8voice", false, "enable 8-voice dispatch")
	flag.Parse()

	if len(flag.Args()) < 2 {
		log.Fatal("usage: tfmxwav -wav out.wav <music-data-file> <sample-bank-file>")
	}
	if *wavOut == "" {
		log.Fatal("missing -wav option")
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

	engine := tfmx.New(outputHz)
	engine.Config = tfmx.Config{MultiMode: *multi, Loops: *loops, Blend: true, Oversampling: true, FilterLevel: 1}
	engine.Load(module)
	engine.Init()
	if err := engine.StartSong(*song, false); err != nil {
		log.Fatal(err)
	}

	wavF, err := os.Create(*wavOut)
	if err != nil {
		log.Fatal(err)
	}
	defer wavF.Close()

	wavW, err := wav.NewWriter(wavF, outputHz)
	if err != nil {
		log.Fatal(err)
	}
	defer wavW.Finish()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)

	left := make([]float32, 2048)
	right := make([]float32, 2048)
	frame := make([]float32, 0, len(left)*2)

	rendering := true
	go func() {
		<-sigch
		rendering = false
	}()

	for rendering {
		n, err := engine.Render(left, right)
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			break
		}

		frame = frame[:0]
		for i := 0; i < n; i++ {
			frame = append(frame, left[i], right[i])
		}
		if err := wavW.WriteFloatFrames(frame); err != nil {
			log.Fatal(err)
		}
	}

	engine.Stop()
	fmt.Printf("wrote %s\n", *wavOut)
}

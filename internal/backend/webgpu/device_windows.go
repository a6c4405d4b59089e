//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// device owns the WebGPU handles and a pipeline cache keyed by kernel name.
type device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.Mutex // guards pipelines and serializes dispatches
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
}

func openDevice() (d *device, err error) {
	// wgpu panics when wgpu_native cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("%w: native library: %v", ErrUnavailable, r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: instance: %v", ErrUnavailable, err)
	}
	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: adapter: %v", ErrUnavailable, err)
	}
	dev, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: device: %v", ErrUnavailable, err)
	}

	return &device{
		instance:  instance,
		adapter:   adapter,
		device:    dev,
		queue:     dev.GetQueue(),
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}, nil
}

// dispatch uploads inputs, runs k over the given workgroup grid and reads
// back outBytes of result.
func (d *device) dispatch(k kernel, inputs [][]byte, outBytes int, params []uint32, grid [3]uint32) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pipeline := d.pipeline(k)
	entries := make([]wgpu.BindGroupEntry, 0, len(inputs)+2)
	for i, data := range inputs {
		buf := d.upload(data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
		defer buf.Release()
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, uint64(len(data))))
	}

	size := uint64(outBytes)
	result := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer result.Release()
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)), result, 0, size))

	// Uniforms are padded to 16 bytes.
	uniform := make([]byte, (4*len(params)+15)&^15)
	for i, p := range params {
		binary.LittleEndian.PutUint32(uniform[4*i:], p)
	}
	paramBuf := d.upload(uniform, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	defer paramBuf.Release()
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)+1), paramBuf, 0, uint64(len(uniform))))

	group := d.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer group.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(grid[0], grid[1], grid[2])
	pass.End()
	d.queue.Submit(encoder.Finish(nil))

	return d.read(result, size)
}

func (d *device) pipeline(k kernel) *wgpu.ComputePipeline {
	if p, ok := d.pipelines[k.name]; ok {
		return p
	}
	shader := d.device.CreateShaderModuleWGSL(k.code)
	p := d.device.CreateComputePipelineSimple(nil, shader, "main")
	d.shaders[k.name] = shader
	d.pipelines[k.name] = p
	return p
}

func (d *device) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // mapped range of exactly size bytes
	copy(unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size), data)
	buf.Unmap()
	return buf
}

// read copies src through a mappable staging buffer.
func (d *device) read(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	out := make([]byte, size)
	//nolint:gosec // mapped range of exactly size bytes
	copy(out, unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size))
	staging.Unmap()
	return out, nil
}

func (d *device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pipelines {
		p.Release()
	}
	for _, s := range d.shaders {
		s.Release()
	}
	d.pipelines, d.shaders = nil, nil

	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
	d.queue, d.device, d.adapter, d.instance = nil, nil, nil, nil
}

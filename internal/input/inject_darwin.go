//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

// Status codes returned through newKeyEvent
#define VK_OK 0
#define VK_NO_SOURCE 1
#define VK_NO_EVENT 2

// Create a keyboard event backed by a HID system state source.
// The event retains the source, so the source is released here.
CGEventRef newKeyEvent(CGKeyCode keyCode, bool keyDown, int *status) {
    CGEventSourceRef source = CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
    if (source == NULL) {
        *status = VK_NO_SOURCE;
        return NULL;
    }

    CGEventRef event = CGEventCreateKeyboardEvent(source, keyCode, keyDown);
    CFRelease(source);
    if (event == NULL) {
        *status = VK_NO_EVENT;
        return NULL;
    }

    *status = VK_OK;
    return event;
}

void setEventFlags(CGEventRef event, uint64_t flags) {
    CGEventSetFlags(event, (CGEventFlags)flags);
}

void postEventToPid(CGEventRef event, pid_t pid) {
    CGEventPostToPid(pid, event);
}

void releaseEvent(CGEventRef event) {
    if (event != NULL) {
        CFRelease(event);
    }
}

bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}
*/
import "C"
import (
	"fmt"
	"log"

	"vkeyboard/internal/keys"
)

// macOS implementation of keyboard injection using CoreGraphics

type cgEventSource struct{}

// NewEventSource returns the CoreGraphics event source
func NewEventSource() EventSource {
	if !bool(C.hasAccessibilityPermissions()) {
		log.Printf("Input: Accessibility permission not granted; posted events may be ignored")
	}
	return cgEventSource{}
}

func (cgEventSource) NewKeyEvent(code keys.Code, keyDown bool) (KeyEvent, error) {
	var status C.int
	ref := C.newKeyEvent(C.CGKeyCode(code), C.bool(keyDown), &status)
	switch status {
	case C.VK_OK:
		return &cgKeyEvent{ref: ref}, nil
	case C.VK_NO_SOURCE:
		return nil, fmt.Errorf("CGEventSourceCreate returned NULL")
	default:
		return nil, fmt.Errorf("CGEventCreateKeyboardEvent returned NULL")
	}
}

type cgKeyEvent struct {
	ref C.CGEventRef
}

func (e *cgKeyEvent) SetFlags(mod keys.Modifier) {
	C.setEventFlags(e.ref, C.uint64_t(mod))
}

func (e *cgKeyEvent) PostToPid(pid int) {
	C.postEventToPid(e.ref, C.pid_t(pid))
}

func (e *cgKeyEvent) Release() {
	C.releaseEvent(e.ref)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

//go:build integration

package library_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/libraryhub/libraryhub/internal/library"
)

var _ = Describe("Borrowing lifecycle", func() {
	for _, name := range backendNames {
		Context("on "+name, func() {
			var w *world

			BeforeEach(func() {
				w = newWorld(name)
			})

			It("moves a single copy out on approval and back on return", func() {
				reader := w.member("reader@example.com")
				book := w.book("9780547928227", 1)

				req, err := w.borrowing.Create(w.ctx, reader, book.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(req.Status).To(Equal(library.StatusPending))
				Expect(w.available(book)).To(Equal(1))

				approved, err := w.borrowing.Approve(w.ctx, w.admin, req.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(approved.Status).To(Equal(library.StatusApproved))
				Expect(approved.ApprovedBy).NotTo(BeNil())
				Expect(*approved.ApprovedBy).To(Equal(w.admin.UserID))
				Expect(w.available(book)).To(Equal(0))

				returned, err := w.borrowing.Return(w.ctx, w.admin, req.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(returned.Status).To(Equal(library.StatusReturned))
				Expect(returned.ReturnDate).NotTo(BeNil())
				Expect(w.available(book)).To(Equal(1))

				report, err := w.borrowing.Audit(w.ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Clean()).To(BeTrue())
			})

			It("leaves the counter alone on rejection", func() {
				reader := w.member("reader@example.com")
				book := w.book("9780547928227", 2)

				req, err := w.borrowing.Create(w.ctx, reader, book.ID)
				Expect(err).NotTo(HaveOccurred())

				rejected, err := w.borrowing.Reject(w.ctx, w.admin, req.ID, "damaged copy")
				Expect(err).NotTo(HaveOccurred())
				Expect(rejected.Status).To(Equal(library.StatusRejected))
				Expect(rejected.Notes).To(Equal("damaged copy"))
				Expect(w.available(book)).To(Equal(2))

				_, err = w.borrowing.Approve(w.ctx, w.admin, req.ID)
				Expect(errors.Is(err, library.ErrInvalidState)).To(BeTrue(), "got %v", err)
				Expect(w.available(book)).To(Equal(2))
			})

			It("refuses a second active request for the same book", func() {
				reader := w.member("reader@example.com")
				book := w.book("9780547928227", 3)

				_, err := w.borrowing.Create(w.ctx, reader, book.ID)
				Expect(err).NotTo(HaveOccurred())

				_, err = w.borrowing.Create(w.ctx, reader, book.ID)
				Expect(errors.Is(err, library.ErrConflict)).To(BeTrue(), "got %v", err)
			})

			It("refuses a second return", func() {
				reader := w.member("reader@example.com")
				book := w.book("9780547928227", 1)

				req, err := w.borrowing.Create(w.ctx, reader, book.ID)
				Expect(err).NotTo(HaveOccurred())
				_, err = w.borrowing.Approve(w.ctx, w.admin, req.ID)
				Expect(err).NotTo(HaveOccurred())
				_, err = w.borrowing.Return(w.ctx, w.admin, req.ID)
				Expect(err).NotTo(HaveOccurred())

				_, err = w.borrowing.Return(w.ctx, w.admin, req.ID)
				Expect(errors.Is(err, library.ErrInvalidState)).To(BeTrue(), "got %v", err)
				Expect(w.available(book)).To(Equal(1))
			})

			It("approves the last copy exactly once under concurrency", func() {
				book := w.book("9780547928227", 1)
				first, err := w.borrowing.Create(w.ctx, w.member("first@example.com"), book.ID)
				Expect(err).NotTo(HaveOccurred())
				second, err := w.borrowing.Create(w.ctx, w.member("second@example.com"), book.ID)
				Expect(err).NotTo(HaveOccurred())

				var (
					wg    sync.WaitGroup
					start = make(chan struct{})
					errs  = make([]error, 2)
				)
				for i, id := range []*library.BorrowingView{first, second} {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						<-start
						_, errs[i] = w.borrowing.Approve(w.ctx, w.admin, id.ID)
					}()
				}
				close(start)
				wg.Wait()

				var succeeded, unavailable int
				for _, err := range errs {
					switch {
					case err == nil:
						succeeded++
					case errors.Is(err, library.ErrUnavailable):
						unavailable++
					default:
						Fail("unexpected approval error: " + err.Error())
					}
				}
				Expect(succeeded).To(Equal(1))
				Expect(unavailable).To(Equal(1))
				Expect(w.available(book)).To(Equal(0))

				report, err := w.borrowing.Audit(w.ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Clean()).To(BeTrue())
			})

			It("never oversells under a burst of approvals", func() {
				const copies, readers = 3, 8
				book := w.book("9780547928227", copies)

				ids := make([]*library.BorrowingView, 0, readers)
				for i := range readers {
					v, err := w.borrowing.Create(w.ctx, w.member(string(rune('a'+i))+"@example.com"), book.ID)
					Expect(err).NotTo(HaveOccurred())
					ids = append(ids, v)
				}

				var (
					mu        sync.Mutex
					wg        sync.WaitGroup
					succeeded int
				)
				for _, v := range ids {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						_, err := w.borrowing.Approve(w.ctx, w.admin, v.ID)
						if err != nil {
							Expect(errors.Is(err, library.ErrUnavailable)).To(BeTrue(), "got %v", err)
							return
						}
						mu.Lock()
						succeeded++
						mu.Unlock()
					}()
				}
				wg.Wait()

				Expect(succeeded).To(Equal(copies))
				Expect(w.available(book)).To(Equal(0))

				report, err := w.borrowing.Audit(w.ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Clean()).To(BeTrue())
			})
		})
	}
})
